// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edgeo-scada/bacnetd/bacnet"
	"github.com/edgeo-scada/bacnetd/device"
	"github.com/edgeo-scada/bacnetd/internal/transport"
	"github.com/edgeo-scada/bacnetd/object"
	"github.com/edgeo-scada/bacnetd/object/accesszone"
	"github.com/edgeo-scada/bacnetd/object/analogvalue"
	"github.com/edgeo-scada/bacnetd/object/colortemp"
	"github.com/edgeo-scada/bacnetd/object/diagnostic"
	"github.com/edgeo-scada/bacnetd/service"
)

var (
	deviceInstance uint32
	deviceName     string
)

// objectEntry is one pre-created object from the config file
type objectEntry struct {
	Type     string `mapstructure:"type"`
	Instance uint32 `mapstructure:"instance"`
	Name     string `mapstructure:"name"`
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the BACnet/IP device",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dev, err := buildDevice()
		if err != nil {
			return err
		}
		defer dev.Cleanup()

		tr := transport.NewUDPTransport(viper.GetString("local"))
		srv := service.NewServer(dev, tr, service.WithServerLogger(logger))
		err = srv.Serve(ctx)

		snap := dev.Stats().Snapshot()
		logger.Info("request totals",
			"reads", snap.ReadRequests, "read_errors", snap.ReadErrors,
			"writes", snap.WriteRequests, "write_errors", snap.WriteErrors)
		return err
	},
}

func init() {
	serveCmd.Flags().Uint32Var(&deviceInstance, "instance", 1, "Device instance number")
	serveCmd.Flags().StringVar(&deviceName, "name", "", "Device object name")

	viper.BindPFlag("device.instance", serveCmd.Flags().Lookup("instance"))
	viper.BindPFlag("device.name", serveCmd.Flags().Lookup("name"))
}

// buildDevice assembles the device and its object stores from the
// merged flag and config file settings.
func buildDevice() (*device.Device, error) {
	dev, err := device.New(viper.GetUint32("device.instance"),
		device.WithName(viper.GetString("device.name")),
		device.WithDescription(viper.GetString("device.description")),
		device.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create device: %w", err)
	}

	notify := object.ChangeNotifier(dev.IncrementRevision)
	dev.Register(analogvalue.NewStore(analogvalue.WithChangeNotifier(notify)))
	dev.Register(colortemp.NewStore(colortemp.WithChangeNotifier(notify)))
	dev.Register(accesszone.NewStore(accesszone.WithChangeNotifier(notify)))
	dev.Register(diagnostic.NewStore(diagnostic.WithChangeNotifier(notify)))

	var entries []objectEntry
	if err := viper.UnmarshalKey("objects", &entries); err != nil {
		return nil, fmt.Errorf("parse objects: %w", err)
	}
	for _, entry := range entries {
		if err := createEntry(dev, entry); err != nil {
			return nil, err
		}
	}
	return dev, nil
}

func createEntry(dev *device.Device, entry objectEntry) error {
	ot, ok := bacnet.ParseObjectType(entry.Type)
	if !ok {
		return fmt.Errorf("unknown object type %q", entry.Type)
	}
	t, ok := dev.Type(ot)
	if !ok {
		return fmt.Errorf("object type %q is not served", entry.Type)
	}
	instance, err := t.Create(entry.Instance)
	if err != nil {
		return fmt.Errorf("create %s:%d: %w", entry.Type, entry.Instance, err)
	}
	if entry.Name != "" {
		if _, taken := dev.ValidObjectName(entry.Name); taken {
			return fmt.Errorf("duplicate object name %q", entry.Name)
		}
		t.SetObjectName(instance, entry.Name)
	}
	logger.Info("configured object", "type", entry.Type, "instance", instance, "name", entry.Name)
	return nil
}
