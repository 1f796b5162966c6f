package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/muurk/ptzlink/internal/camhttp"
	"github.com/muurk/ptzlink/internal/firmware"
	"github.com/muurk/ptzlink/internal/logging"
	"github.com/muurk/ptzlink/internal/variables"
)

// Identity variables
var (
	DeviceNameDefinition      = variables.Definition{ID: "device_name", Name: "Device Name"}
	FirmwareVersionDefinition = variables.Definition{ID: "firmware_version", Name: "Firmware Version"}
	SerialNumberDefinition    = variables.Definition{ID: "serial_number", Name: "Serial Number"}
	ModelDefinition           = variables.Definition{ID: "model", Name: "Model"}
	FirmwareUpdateDefinition  = variables.Definition{ID: "firmware_update", Name: "Firmware Update Available"}
)

// identityFields maps get_device_conf keys to variables, in publish order
var identityFields = []struct {
	key string
	def variables.Definition
}{
	{"devname", DeviceNameDefinition},
	{"versioninfo", FirmwareVersionDefinition},
	{"serial_num", SerialNumberDefinition},
	{"device_model", ModelDefinition},
}

// Identity is what was learned about the camera from get_device_conf
type Identity struct {
	Definitions []variables.Definition
	Values      map[string]string

	// Model and Version are the raw fields the firmware check needs
	Model   string
	Version string
}

func (id *Identity) add(def variables.Definition, value string) {
	if id.Values == nil {
		id.Values = make(map[string]string)
	}
	id.Definitions = append(id.Definitions, def)
	id.Values[def.ID] = value
}

// FetchIdentity reads get_device_conf. Fields the camera does not return,
// or all of them when the request fails, are left out; the error is
// returned for callers that report it.
func FetchIdentity(ctx context.Context, client *camhttp.Client) (Identity, error) {
	var id Identity

	res, err := client.Get(ctx, camhttp.PathDeviceConf)
	if err != nil {
		logging.Warn("Device identity fetch failed",
			zap.String("path", camhttp.PathDeviceConf),
			zap.String("reason", camhttp.ShortMessage(err)),
			zap.Error(err),
		)
		return id, err
	}

	for _, f := range identityFields {
		v, ok := res.String(f.key)
		if !ok {
			logging.Debug("Device identity field missing", zap.String("field", f.key))
			continue
		}
		id.add(f.def, v)
		switch f.key {
		case "versioninfo":
			id.Version = v
		case "device_model":
			id.Model = v
		}
	}

	logging.Info("Device identity fetched",
		zap.String("model", id.Model),
		zap.String("version", id.Version),
		zap.Int("fields", len(id.Definitions)),
	)
	return id, nil
}

// FirmwareAdvisory runs the firmware check for id and returns the value
// published as firmware_update. A failed check yields firmware.NoUpdate.
func FirmwareAdvisory(ctx context.Context, checker FirmwareChecker, id Identity) string {
	adv, err := checker.Check(ctx, id.Model, id.Version)
	if err != nil {
		logging.Warn("Firmware check failed",
			zap.String("model", id.Model),
			zap.Error(err),
		)
		return firmware.NoUpdate
	}
	logging.Info("Firmware checked",
		zap.String("current", adv.Current),
		zap.String("latest", adv.Latest),
		zap.String("available", adv.Available),
	)
	return adv.Available
}
