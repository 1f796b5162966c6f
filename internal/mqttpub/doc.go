// Package mqttpub mirrors published variables to an MQTT broker.
//
// Definitions are published retained to <topic>/definitions so that a
// subscriber joining late still learns the variable set. Values are
// published to <topic>/values as a JSON object of id to value; each message
// carries only the ids that changed in that update.
//
// Example:
//
//	pub, err := mqttpub.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer pub.Close()
//	controller := session.New(transport, variables.Fanout{store, pub}, ...)
package mqttpub
