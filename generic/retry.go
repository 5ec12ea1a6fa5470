package generic

import (
	"time"
)

// retries the given function up to "retries" times in case the function returns an error
func Retry(f func() error, retries int) error {
	return RetryWithDelay(f, retries, 0)
}

// same as Retry, but waits for the given delay before every retry; the delay doubles after each attempt
func RetryWithDelay(f func() error, retries int, delay time.Duration) error {
	if err := f(); err != nil {
		if retries <= 0 {
			return err
		}
		if delay > 0 {
			<-time.After(delay)
		}
		return RetryWithDelay(f, retries-1, delay*2)
	}
	return nil
}
