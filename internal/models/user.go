package models

import "time"

// User carries the nested Guinean administrative geography used for
// locality-scoped ranking (quartier < commune < prefecture < region).
type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Quartier   string    `json:"quartier"`
	Commune    string    `json:"commune"`
	Prefecture string    `json:"prefecture"`
	Region     string    `json:"region"`
	CreatedAt  time.Time `json:"created_at"`
}
