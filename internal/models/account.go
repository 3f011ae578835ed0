package models

// Account is a logical account name bound to a Mercury account id
type Account struct {
	Name string `json:"name" mapstructure:"name"`
	ID   string `json:"id" mapstructure:"id"`
}
