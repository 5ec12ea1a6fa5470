package generic

import (
	"errors"
	"testing"
)

func TestConfigErr(t *testing.T) {
	ce := NewConfigErr()
	if ce.IsError() {
		t.Fatalf("expected no error for an empty ConfigErr")
	}

	inner := NewConfigErr()
	inner.Add("host cannot be empty")
	inner.Add("port must be positive")

	ce.Merge("store", &inner)
	ce.Merge("sentry", errors.New("dsn cannot be empty"))
	ce.Merge("influx", nil)

	if !ce.IsError() {
		t.Fatalf("expected an error after merging")
	}
	expected := "config err: store: host cannot be empty,store: port must be positive,sentry: dsn cannot be empty"
	if ce.Error() != expected {
		t.Fatalf("expected '%s', but got '%s'", expected, ce.Error())
	}
}
