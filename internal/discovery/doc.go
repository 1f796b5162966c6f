// Package discovery finds PTZ cameras on the local network with mDNS.
//
// Cameras advertise their web interface as "_http._tcp". The scanner keeps
// entries whose instance name, host name or "model" TXT record mentions PTZ
// or VISCA, or that carry a "visca_port" TXT record.
//
// # Usage Example
//
//	devices, err := discovery.QuickScan(ctx, 5*time.Second)
//	if err != nil {
//	    return err
//	}
//	for _, d := range devices {
//	    fmt.Printf("%s  visca=%d\n", d, d.ViscaPort)
//	}
//
// # Network Requirements
//
// Scanning needs multicast on the local segment and UDP port 5353 open.
package discovery
