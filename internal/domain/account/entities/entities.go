package entities

// AccountStatus is a point-in-time view of one pooled account
type AccountStatus struct {
	ID        string `json:"id"`
	Usage     int    `json:"usage"`
	Limit     int    `json:"limit"`
	Blocked   bool   `json:"blocked"`
	Connected bool   `json:"connected"`
	Available bool   `json:"available"`
}
