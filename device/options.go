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

package device

import "log/slog"

// Option configures a Device
type Option func(*Device)

// WithName sets the device object name
func WithName(name string) Option {
	return func(d *Device) {
		if name != "" {
			d.name = name
		}
	}
}

// WithDescription sets the device description
func WithDescription(description string) Option {
	return func(d *Device) { d.description = description }
}

// WithVendor sets the vendor name and identifier
func WithVendor(name string, id uint16) Option {
	return func(d *Device) {
		d.vendorName = name
		d.vendorID = id
	}
}

// WithModelName sets the model name
func WithModelName(name string) Option {
	return func(d *Device) { d.modelName = name }
}

// WithFirmwareRevision sets the firmware revision string
func WithFirmwareRevision(revision string) Option {
	return func(d *Device) { d.firmware = revision }
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(d *Device) {
		if logger != nil {
			d.logger = logger
		}
	}
}
