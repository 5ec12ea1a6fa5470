package store

import (
	"testing"
)

func TestConfigDSN(t *testing.T) {
	conf := Config{
		User:     "postgres",
		Password: "secret",
		Host:     "localhost",
		Port:     5432,
		DBName:   "certscore",
	}
	expected := "host=localhost port=5432 user=postgres password=secret dbname=certscore sslmode=disable"
	if actual := conf.DSN(); actual != expected {
		t.Fatalf("expected '%s', but got '%s'", expected, actual)
	}
}

func TestConfigIsValid(t *testing.T) {
	valid := Config{
		User:   "postgres",
		Host:   "localhost",
		Port:   5432,
		DBName: "certscore",
	}
	tests := []struct {
		name  string
		conf  func() Config
		isErr bool
	}{
		{
			name:  "valid",
			conf:  func() Config { return valid },
			isErr: false,
		},
		{
			name: "missing host",
			conf: func() Config {
				c := valid
				c.Host = ""
				return c
			},
			isErr: true,
		},
		{
			name: "invalid port",
			conf: func() Config {
				c := valid
				c.Port = 0
				return c
			},
			isErr: true,
		},
		{
			name: "invalid influxdb",
			conf: func() Config {
				c := valid
				c.InfluxOpts = InfluxOpts{Enabled: true}
				return c
			},
			isErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.conf()
			if err := c.IsValid(); (err != nil) != tt.isErr {
				t.Fatalf("expected error: %t, but got %v", tt.isErr, err)
			}
		})
	}
}
