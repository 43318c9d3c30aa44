package model

// RoomTypeSnapshot is the startup-loaded inventory of a room type.  Values
// are immutable once loaded; a reload replaces the whole set.
//
// Fields:
//  RoomTypeID – room_types.id.
//  HotelID    – hotel owning the room type.
//  Capacity   – guests per room, used for pricing.
//  TotalStock – number of physical rooms of this type.
type RoomTypeSnapshot struct {
    RoomTypeID uint64
    HotelID    uint64
    Capacity   int
    TotalStock int
}
