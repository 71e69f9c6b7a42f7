package entity

import "strings"

// Channel is an OTP delivery channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

func (c Channel) String() string {
	return string(c)
}

// OtpPurpose selects the message template used for an OTP.
type OtpPurpose string

const (
	PurposeRegistration  OtpPurpose = "registration"
	PurposePasswordReset OtpPurpose = "passwordReset"
)

func (p OtpPurpose) String() string {
	return string(p)
}

// Contact is the pair of uniqueness keys for an Account.
type Contact struct {
	Email string
	Phone string
}

// NewContact builds a normalized Contact.
func NewContact(email, phone string) Contact {
	return Contact{Email: email, Phone: phone}.Normalized()
}

// Normalized lower-cases and trims the email. The phone is kept as received.
func (c Contact) Normalized() Contact {
	return Contact{
		Email: strings.ToLower(strings.TrimSpace(c.Email)),
		Phone: c.Phone,
	}
}

func (c Contact) IsEmpty() bool {
	return c.Email == "" && c.Phone == ""
}

// PreferredChannel picks email whenever one is present.
func (c Contact) PreferredChannel() Channel {
	if c.Email != "" {
		return ChannelEmail
	}

	return ChannelSMS
}

// Recipient returns the address for the preferred channel.
func (c Contact) Recipient() string {
	if c.Email != "" {
		return c.Email
	}

	return c.Phone
}

// Conflicts reports whether any contact present on both sides differs.
func (c Contact) Conflicts(other Contact) bool {
	if c.Email != "" && other.Email != "" && c.Email != other.Email {
		return true
	}

	return c.Phone != "" && other.Phone != "" && c.Phone != other.Phone
}
