package models

// Item categories. Purchasing an item of either category auto-equips it.
const (
	CategoryOutfit    = "outfit"
	CategoryAccessory = "accessory"
)

// Item is a purchasable customization item in the shop catalog.
type Item struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required,min=2,max=60"`
	Description string `json:"description" validate:"omitempty,max=200"`
	Category    string `json:"category" validate:"required,oneof=outfit accessory"`
	Price       int    `json:"price" validate:"gte=0"`
}
