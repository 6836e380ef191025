package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is the full membership record of an association member. Password and
// refresh token never leave the server in JSON responses.
type User struct {
	ID                    primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	EmployeeID            string             `json:"employeeId" bson:"employee_id"`
	Username              string             `json:"username" bson:"username"`
	Surname               string             `json:"surname" bson:"surname"`
	Address               string             `json:"address" bson:"address"`
	Province              string             `json:"province" bson:"province"`
	District              string             `json:"district" bson:"district"`
	Municipality          string             `json:"municipality" bson:"municipality"`
	WardNumber            string             `json:"wardNumber" bson:"ward_number"`
	Tole                  string             `json:"tole" bson:"tole"`
	TelephoneNumber       string             `json:"telephoneNumber" bson:"telephone_number"`
	MobileNumber          string             `json:"mobileNumber" bson:"mobile_number"`
	DOB                   string             `json:"dob" bson:"dob"`
	PostAtRetirement      string             `json:"postAtRetirement" bson:"post_at_retirement"`
	PensionLeaseNumber    string             `json:"pensionLeaseNumber" bson:"pension_lease_number"`
	Office                string             `json:"office" bson:"office"`
	ServiceStartDate      string             `json:"serviceStartDate" bson:"service_start_date"`
	ServiceRetirementDate string             `json:"serviceRetirementDate" bson:"service_retirement_date"`
	MembershipNumber      string             `json:"membershipNumber" bson:"membership_number"`
	RegistrationNumber    string             `json:"registrationNumber" bson:"registration_number"`
	DateOfFillUp          string             `json:"dateOfFillUp" bson:"date_of_fill_up"`
	Place                 string             `json:"place" bson:"place"`
	Email                 string             `json:"email" bson:"email"`
	Password              string             `json:"password,omitempty" bson:"password"`
	Role                  string             `json:"role" bson:"role"`
	RefreshToken          string             `json:"-" bson:"refresh_token,omitempty"`
	CreatedAt             time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at" bson:"updated_at"`
}

// Redacted returns a copy safe to hand back to clients.
func (u *User) Redacted() *User {
	c := *u
	c.Password = ""
	c.RefreshToken = ""
	return &c
}

// UserProfileUpdate carries the member fields an update request may change.
// Email and password use pointers so "absent" and "empty" stay distinct.
type UserProfileUpdate struct {
	Username        string  `json:"username,omitempty" bson:"username,omitempty"`
	Surname         string  `json:"surname,omitempty" bson:"surname,omitempty"`
	Address         string  `json:"address,omitempty" bson:"address,omitempty"`
	Province        string  `json:"province,omitempty" bson:"province,omitempty"`
	District        string  `json:"district,omitempty" bson:"district,omitempty"`
	Municipality    string  `json:"municipality,omitempty" bson:"municipality,omitempty"`
	WardNumber      string  `json:"wardNumber,omitempty" bson:"ward_number,omitempty"`
	Tole            string  `json:"tole,omitempty" bson:"tole,omitempty"`
	TelephoneNumber string  `json:"telephoneNumber,omitempty" bson:"telephone_number,omitempty"`
	MobileNumber    string  `json:"mobileNumber,omitempty" bson:"mobile_number,omitempty"`
	Office          string  `json:"office,omitempty" bson:"office,omitempty"`
	Place           string  `json:"place,omitempty" bson:"place,omitempty"`
	Email           *string `json:"email,omitempty" bson:"email,omitempty"`
	Password        *string `json:"password,omitempty" bson:"password,omitempty"`
}
