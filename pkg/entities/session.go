package entities

import (
	"regexp"
	"time"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)

// ValidSessionID reports whether id is 1-100 letters, digits, '-' or '_'.
// Ids name credential directories, so nothing else is accepted.
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// Session is the persisted status of one linked messaging account. The live
// client lives in memory; this row survives restarts.
type Session struct {
	ID             string        `json:"id" gorm:"primaryKey;type:varchar(100)"`
	UserID         uint          `json:"user_id" gorm:"index;not null"`
	Status         string        `json:"status" gorm:"type:varchar(20);index;not null"`
	Config         SessionConfig `json:"config" gorm:"serializer:json"`
	Phone          string        `json:"phone" gorm:"type:varchar(32)"`
	PushName       string        `json:"push_name" gorm:"type:varchar(255)"`
	ProfilePicURL  string        `json:"profile_pic_url" gorm:"type:text"`
	QRCode         string        `json:"-" gorm:"type:text"`
	ConnectedAt    *time.Time    `json:"connected_at"`
	DisconnectedAt *time.Time    `json:"disconnected_at"`
	LastQRAt       *time.Time    `json:"last_qr_at"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// SessionConfig is the caller supplied launch configuration of a session.
type SessionConfig struct {
	Proxy       ProxyConfig  `json:"proxy" yaml:"proxy"`
	Device      DeviceConfig `json:"device" yaml:"device"`
	Ignore      IgnoreConfig `json:"ignore" yaml:"ignore"`
	Persistence Persistence  `json:"persistence" yaml:"persistence"`
}

type ProxyConfig struct {
	Server   string `json:"server" yaml:"server"`
	Username string `json:"username,omitempty" yaml:"username"`
	Password string `json:"password,omitempty" yaml:"password"`
}

// Redacted returns a copy safe to hand to API callers: the proxy password is
// dropped and reported through the second value.
func (c SessionConfig) Redacted() (SessionConfig, bool) {
	hasAuth := c.Proxy.Password != ""
	c.Proxy.Password = ""
	return c, hasAuth
}

type DeviceConfig struct {
	Name      string `json:"name,omitempty" yaml:"name"`
	UserAgent string `json:"user_agent,omitempty" yaml:"user_agent"`
}

// IgnoreConfig filters inbound traffic before it becomes a domain event.
type IgnoreConfig struct {
	Groups    bool `json:"groups" yaml:"groups"`
	Broadcast bool `json:"broadcast" yaml:"broadcast"`
	FromMe    bool `json:"from_me" yaml:"from_me"`
}

type Persistence struct {
	StoreQR bool `json:"store_qr" yaml:"store_qr"`
}
