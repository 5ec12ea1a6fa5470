package models

import (
	"database/sql"
	"time"
)

// StatusComplete marks website rows for which the certificate data was fully collected
const StatusComplete = 7

// ----- BEGIN INPUT -----

type WebsiteData struct {
	ID                            uint           `gorm:"primary_key;column:id" pg:",pk"`
	tableName                     struct{}       `sql:"website_data"`
	Domain                        sql.NullString `gorm:"column:domain"`
	HttpsCertificateAll           sql.NullString `gorm:"column:https_certificate_all"`
	HttpsCertificateIssuer        sql.NullString `gorm:"column:https_certificate_issuer"`
	HttpsCertificatePublicKeyBits sql.NullInt64  `gorm:"column:https_certificate_public_key_bits"`
	CipherSuite                   sql.NullString `gorm:"column:cipher_suite"`
	ProtocolVersion               sql.NullString `gorm:"column:protocol_version"`
	HasCaaRecords                 sql.NullBool   `gorm:"column:has_caa_records"`
	Status                        int            `gorm:"column:status;index"`
	SiteType                      string         `gorm:"column:site_type"`
}

func (WebsiteData) TableName() string {
	return "website_data"
}

// ----- END INPUT -----

// ----- BEGIN OUTPUT -----

type Features struct {
	ID        uint     `gorm:"primary_key" pg:",pk"`
	tableName struct{} `sql:"certificate_features"`
	RunID     uint     `gorm:"index"`
	WebsiteID uint     `gorm:"index"`
	SiteType  string
	IssuerID  int
	Error     string

	// certificate
	ProtocolVersion    sql.NullString
	CipherSuite        sql.NullString
	ChainLength        int
	SubjectCn          string
	SubjectCountry     string
	PublicKeyBits      sql.NullInt64
	KeyAlgorithm       sql.NullString
	SignatureAlgorithm sql.NullString
	NotBefore          *time.Time
	NotAfter           *time.Time
	ValidityPeriod     sql.NullInt64 // in days
	ValidationLevel    sql.NullInt64 // dv/ov/ev
	SanCount           sql.NullInt64
	Wildcard           bool
	Hsts               bool
	Caa                bool
	Transparency       bool
	ExtendedValidation bool

	// domain
	Domain           string
	Tld              string
	Apex             string
	SubdomainLabels  int
	DomainLength     int
	WordCount        int
	SubdomainCount   int
	HasHyphen        bool
	HasDigits        bool
	SpecialCharCount int
	DigitCount       int
	IsIpAddress      bool
	Entropy          float64
	ConsonantRatio   float64

	// cipher
	CipherCategory string
	HasPfs         bool
	KeyExchange    string

	// score
	TlsScore                   float64
	KeyScore                   float64
	IssuerScore                float64
	DomainScore                float64
	CipherScore                float64
	AdditionalSecurityModifier float64
	SecurityScore              float64
}

func (Features) TableName() string {
	return "certificate_features"
}

type Issuer struct {
	ID        int      `gorm:"primary_key" pg:",pk"`
	tableName struct{} `sql:"issuers"`
	Name      string   `gorm:"index"`
}

func (Issuer) TableName() string {
	return "issuers"
}

// A run is a single pass of the analysis over the input table
type Run struct {
	ID          uint     `gorm:"primary_key" pg:",pk"`
	tableName   struct{} `sql:"runs"`
	Ruid        string
	Description string
	Host        string
	StartTime   time.Time
	EndTime     time.Time
	Rows        int
	Failed      int
}

func (Run) TableName() string {
	return "runs"
}

// ----- END OUTPUT -----
