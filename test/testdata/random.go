package testdata

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
)

func RandomName() string {
	return gofakeit.FirstName() + " " + gofakeit.LastName()
}

// RandomMobileNumber returns a ten digit Indian mobile number without the
// country code.
func RandomMobileNumber() string {
	return fmt.Sprintf("%d%09d", gofakeit.IntRange(6, 9), gofakeit.IntRange(0, 999999999))
}

func RandomPincode() string {
	return fmt.Sprintf("%06d", gofakeit.IntRange(110000, 855999))
}
