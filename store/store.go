package store

import (
	"fmt"

	"github.com/aau-network-security/certscore/generic"
	"github.com/aau-network-security/certscore/models"
	"github.com/go-pg/pg"
	"github.com/jinzhu/gorm"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type Config struct {
	User       string     `yaml:"user"`
	Password   string     `yaml:"password"`
	Host       string     `yaml:"host"`
	Port       int        `yaml:"port"`
	DBName     string     `yaml:"dbname"`
	Debug      bool       `yaml:"debug"`
	InfluxOpts InfluxOpts `yaml:"influxdb"`

	d *gorm.DB
}

func (c *Config) Open() (*gorm.DB, error) {
	var err error
	if c.d == nil {
		c.d, err = gorm.Open("postgres", c.DSN())
	}
	return c.d, err
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.DBName)
}

// Connect opens the go-pg connection used for writing
func (c *Config) Connect() *pg.DB {
	pgOpts := pg.Options{
		User:     c.User,
		Password: c.Password,
		Addr:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Database: c.DBName,
	}

	db := pg.Connect(&pgOpts)
	if c.Debug {
		db.AddQueryHook(&debugHook{})
	}
	return db
}

func (c *Config) IsValid() error {
	ce := generic.NewConfigErr()
	if c.Host == "" {
		ce.Add("host cannot be empty")
	}
	if c.Port <= 0 {
		ce.Add("port must be positive")
	}
	if c.User == "" {
		ce.Add("user cannot be empty")
	}
	if c.DBName == "" {
		ce.Add("dbname cannot be empty")
	}
	ce.Merge("influxdb", c.InfluxOpts.IsValid())
	if ce.IsError() {
		return &ce
	}
	return nil
}

type debugHook struct{}

func (hook *debugHook) BeforeQuery(qe *pg.QueryEvent) {
	fq, err := qe.FormattedQuery()
	if err != nil {
		return
	}
	log.Debug().Msgf("%s", fq)
}

func (hook *debugHook) AfterQuery(qe *pg.QueryEvent) {}

// Migrate creates or updates the output tables
func Migrate(g *gorm.DB) error {
	migrateExamples := []interface{}{
		&models.Features{},
		&models.Issuer{},
		&models.Run{},
	}
	for _, ex := range migrateExamples {
		if err := g.AutoMigrate(ex).Error; err != nil {
			return err
		}
	}
	return nil
}
