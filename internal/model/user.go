package model

import "time"

// User mirrors an identity-provider account 1:1.  Rows are created, updated
// and deleted only by the identity webhook; the rest of the application reads
// Name and Email for notifications.
//
// Fields:
//  ID        – identity-provider user id (opaque string).
//  Name      – display name.
//  Email     – notification address.
//  ImageURL  – avatar URL from the provider.
//  CreatedAt – local mirror creation time.
type User struct {
	ID        string    // users.id
	Name      string    // users.name
	Email     string    // users.email
	ImageURL  string    // users.image_url
	CreatedAt time.Time // users.created_at
}
