// Package identity resolves the device ID the daemon tags its deliveries with.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/benmeehan/reactive-location/pkg/file"
)

// Identity is the record kept in the device file.
type Identity struct {
	ID       string          `json:"device_id,omitempty"`
	Name     string          `json:"device_name,omitempty"`
	OrgID    string          `json:"org_id,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// DeviceInfoInterface is what consumers of the device identity depend on.
type DeviceInfoInterface interface {
	LoadDeviceInfo() error
	GetDeviceID() string
	GetDeviceIdentity() *Identity
}

var _ DeviceInfoInterface = (*DeviceInfo)(nil)

// DeviceInfo resolves the device identity from a JSON device file. The
// configured fallback ID applies while the file is absent or carries no ID.
type DeviceInfo struct {
	DeviceInfoFile string
	Identity       Identity
	fallbackID     string
	fileOps        file.FileOperations
}

func NewDeviceInfo(filePath, fallbackID string, fileOps file.FileOperations) *DeviceInfo {
	return &DeviceInfo{DeviceInfoFile: filePath, fallbackID: fallbackID, fileOps: fileOps}
}

// LoadDeviceInfo replaces Identity with the contents of the device file.
// Neither a missing file nor an empty path is an error.
func (d *DeviceInfo) LoadDeviceInfo() error {
	var loaded Identity
	if d.DeviceInfoFile != "" {
		err := d.fileOps.ReadJsonFile(d.DeviceInfoFile, &loaded)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			loaded = Identity{}
		case err != nil:
			return fmt.Errorf("read device file %s: %w", d.DeviceInfoFile, err)
		}
	}
	d.Identity = loaded
	return nil
}

func (d *DeviceInfo) GetDeviceIdentity() *Identity {
	return &d.Identity
}

// GetDeviceID prefers the ID from the device file.
func (d *DeviceInfo) GetDeviceID() string {
	if id := d.Identity.ID; id != "" {
		return id
	}
	return d.fallbackID
}
