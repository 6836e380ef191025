package models

// SendOTPRequest starts the login flow: credentials plus the channel the
// caller wants the challenge delivered over. An empty deliveryMethod means
// email, which is all the admin portal ever sends.
type SendOTPRequest struct {
	Email          string         `json:"email"`
	Password       string         `json:"password"`
	DeliveryMethod DeliveryMethod `json:"deliveryMethod,omitempty"`
}

// SendOTPResponse hands the client the correlation token it must echo back
// during verification. No session exists yet at this point.
type SendOTPResponse struct {
	Token          string         `json:"token"`
	Identifier     string         `json:"identifier"`
	DeliveryMethod DeliveryMethod `json:"deliveryMethod"`
	Message        string         `json:"message"`
}

// VerifyOTPRequest completes the login flow.
type VerifyOTPRequest struct {
	Token          string         `json:"token"`
	OTP            string         `json:"otp"`
	DeliveryMethod DeliveryMethod `json:"deliveryMethod,omitempty"`
}

type VerifyOTPResponse struct {
	LoggedInUser *User  `json:"loggedInUser"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
