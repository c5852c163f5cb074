// Package menu models the controller's context menu as a fixed list of
// tagged items built once at startup.
package menu

import (
	"github.com/srediag/perf-overlay/api"
	"github.com/srediag/perf-overlay/pkg/control"
)

// Role is what a menu item does.
type Role int

const (
	RoleSeparator Role = iota
	// RolePreset selects Item.Preset; checked while it is the local preset.
	RolePreset
	// RoleToggle flips a boolean setting; checked while it is on.
	RoleToggle
	// RoleAction runs a command without check state.
	RoleAction
)

// Setting names a boolean setting a toggle item reflects.
type Setting int

const (
	SettingNone Setting = iota
	SettingVisible
	SettingKernelDrivers
	SettingFullOnPowerControl
)

// Item is one menu entry.
type Item struct {
	Role    Role
	Label   string
	Preset  api.Preset
	Setting Setting
	// Action is the command for RoleAction items.
	Action control.Kind
}

// Build returns the menu for presets.
func Build(presets []api.Preset) []Item {
	items := []Item{
		{Role: RoleToggle, Label: "Show OSD", Setting: SettingVisible},
		{Role: RoleSeparator},
	}
	for _, p := range presets {
		items = append(items, Item{Role: RolePreset, Label: p.String(), Preset: p})
	}
	items = append(items,
		Item{Role: RoleSeparator},
		Item{Role: RoleToggle, Label: "Full OSD while Power Control is shown", Setting: SettingFullOnPowerControl},
		Item{Role: RoleToggle, Label: "Use Kernel Drivers", Setting: SettingKernelDrivers},
		Item{Role: RoleSeparator},
		Item{Role: RoleAction, Label: "Reset Sensors", Action: control.ResetSensors},
	)
	return items
}

// Checked reports whether it shows a check mark under s.
func (it Item) Checked(s api.Settings) bool {
	switch it.Role {
	case RolePreset:
		return s.Preset == it.Preset
	case RoleToggle:
		switch it.Setting {
		case SettingVisible:
			return s.Visible
		case SettingKernelDrivers:
			return s.KernelDrivers
		case SettingFullOnPowerControl:
			return s.FullOnPowerControl
		}
	}
	return false
}

// Command is what clicking it asks the controller to do, given the current
// settings. Separators return false.
func (it Item) Command(s api.Settings) (control.Command, bool) {
	switch it.Role {
	case RolePreset:
		return control.Command{Kind: control.SetPreset, Preset: it.Preset}, true
	case RoleToggle:
		switch it.Setting {
		case SettingVisible:
			return control.Command{Kind: control.ToggleVisible}, true
		case SettingKernelDrivers:
			return control.Command{Kind: control.SetKernelDrivers, Enable: !s.KernelDrivers}, true
		case SettingFullOnPowerControl:
			return control.Command{Kind: control.SetFullOnPowerControl, Enable: !s.FullOnPowerControl}, true
		}
	case RoleAction:
		return control.Command{Kind: it.Action}, true
	}
	return control.Command{}, false
}

// Click issues the item's command on c.
func Click(c *control.Controller, it Item) error {
	cmd, ok := it.Command(c.Settings())
	if !ok {
		return nil
	}
	return c.Submit(cmd)
}
