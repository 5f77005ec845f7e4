package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// User roles
const (
	RoleCitizen         = "citizen"
	RoleWorker          = "worker"
	RoleDepartmentAdmin = "department-admin"
	RoleDistrictAdmin   = "district-admin"
	RoleStateAdmin      = "state-admin"
	RoleVillageAdmin    = "village-admin"
)

// Verification methods used to deliver an OTP
const (
	VerifyByEmail = "email"
	VerifyBySMS   = "sms"
	VerifyByCall  = "call"
)

// User holds the structure for the users collection in mongo
type User struct {
	ID                     primitive.ObjectID  `json:"_id" bson:"_id"`
	Name                   string              `json:"name" bson:"name"`
	Email                  string              `json:"email" bson:"email"`
	Phone                  string              `json:"phone,omitempty" bson:"phone,omitempty"`
	Password               string              `json:"-" bson:"password"`
	Role                   string              `json:"role" bson:"role"`
	Department             string              `json:"department,omitempty" bson:"department,omitempty"`
	District               string              `json:"district,omitempty" bson:"district,omitempty"`
	AssignedDistrict       string              `json:"assignedDistrict,omitempty" bson:"assignedDistrict,omitempty"`
	Village                *primitive.ObjectID `json:"village,omitempty" bson:"village,omitempty"`
	VerificationMethod     string              `json:"verificationMethod" bson:"verificationMethod"`
	AccountVerified        bool                `json:"accountVerified" bson:"accountVerified"`
	IsActive               bool                `json:"isActive" bson:"isActive"`
	OTP                    string              `json:"-" bson:"otp,omitempty"`
	OTPExpiresAt           *primitive.DateTime `json:"-" bson:"otpExpiresAt,omitempty"`
	PasswordResetVerified  bool                `json:"-" bson:"passwordResetVerified"`
	PasswordResetExpiresAt *primitive.DateTime `json:"-" bson:"passwordResetExpiresAt,omitempty"`
	CreatedAt              primitive.DateTime  `json:"createdAt" bson:"createdAt"`
	UpdatedAt              primitive.DateTime  `json:"updatedAt" bson:"updatedAt"`
}

// IsAdmin reports whether the role belongs to an administrative tier
func IsAdmin(role string) bool {
	switch role {
	case RoleDepartmentAdmin, RoleDistrictAdmin, RoleStateAdmin, RoleVillageAdmin:
		return true
	}
	return false
}
