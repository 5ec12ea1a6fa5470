package store

import (
	"database/sql"

	"github.com/aau-network-security/certscore/models"
	"github.com/aau-network-security/certscore/pipeline"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

// Source reads the completed website rows, ordered by id
type Source struct {
	db *gorm.DB
}

func NewSource(g *gorm.DB) *Source {
	return &Source{
		db: g,
	}
}

func (s *Source) query() *gorm.DB {
	return s.db.Model(&models.WebsiteData{}).Where("status = ?", models.StatusComplete)
}

func (s *Source) Count() (int, error) {
	var count int
	if err := s.query().Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "count website data")
	}
	return count, nil
}

func (s *Source) Page(offset, limit int) ([]pipeline.Row, error) {
	var data []models.WebsiteData
	if err := s.query().Order("id ASC").Offset(offset).Limit(limit).Find(&data).Error; err != nil {
		return nil, errors.Wrap(err, "select website data")
	}

	rows := make([]pipeline.Row, len(data))
	for i, d := range data {
		rows[i] = toRow(d)
	}
	return rows, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func toRow(d models.WebsiteData) pipeline.Row {
	row := pipeline.Row{
		ID:              d.ID,
		SiteType:        d.SiteType,
		Domain:          nullString(d.Domain),
		CertificateDump: nullString(d.HttpsCertificateAll),
		CipherSuite:     nullString(d.CipherSuite),
		Issuer:          nullString(d.HttpsCertificateIssuer),
		Protocol:        nullString(d.ProtocolVersion),
	}
	if d.HttpsCertificatePublicKeyBits.Valid {
		bits := int(d.HttpsCertificatePublicKeyBits.Int64)
		row.PublicKeyBits = &bits
	}
	if d.HasCaaRecords.Valid {
		caa := d.HasCaaRecords.Bool
		row.HasCAA = &caa
	}
	return row
}
