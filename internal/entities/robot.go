package entities

// Robot is a projection of a robot entry and its neighbourhood:
// the teams using it, the hardware it is built from and the modules it supports.
type Robot struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	TeamIDs     []int64 `json:"user_ids"`
	HardwareIDs []int64 `json:"hardware_ids"`
	ModuleIDs   []int64 `json:"module_ids"`
}
