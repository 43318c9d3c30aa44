package model

// Reserver is the guest who owns a reservation.  A row is created the
// first time customer info is supplied for a reservation and updated in
// place on later submissions.
type Reserver struct {
    ID        uint64 // reservers.id
    FirstName string // reservers.first_name
    LastName  string // reservers.last_name
    Phone     string // reservers.phone
    Email     string // reservers.email
}
