package models

type User struct {
	ID           uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string  `gorm:"unique;not null"          json:"username"`
	PasswordHash string  `gorm:"not null"                 json:"-"`
	RefreshToken *string `gorm:"column:refresh_token"     json:"-"`
}

// InventoryItem is one row of a snapshot's char_inventory table.
type InventoryItem struct {
	ID           uint   `gorm:"column:id;primaryKey"    json:"-"`
	CharName     string `gorm:"column:char_name"        json:"charName"`
	CharGuild    string `gorm:"column:char_guild"       json:"charGuild"`
	ItemName     string `gorm:"column:item_name"        json:"itemName"`
	ItemCount    int    `gorm:"column:item_count"       json:"itemCount"`
	ItemLocation string `gorm:"column:item_location"    json:"itemLocation"`
}

func (InventoryItem) TableName() string { return "char_inventory" }
