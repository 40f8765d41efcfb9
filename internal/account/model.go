package account

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Account represents one bank account known to the terminal. Balance is
// held in paise so arithmetic never drifts; cash operations are expressed
// in whole rupees.
type Account struct {
	Number  int
	Holder  string
	Balance int64
	PINHash []byte
	CardID  int64
}

// VerifyPIN reports whether the entered PIN matches the stored hash.
func (a Account) VerifyPIN(pin string) bool {
	return bcrypt.CompareHashAndPassword(a.PINHash, []byte(pin)) == nil
}

// HashPIN derives the stored form of a PIN.
func HashPIN(pin string) ([]byte, error) {
	if len(pin) < 4 {
		return nil, fmt.Errorf("PIN must be at least 4 digits")
	}
	return bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
}

// FormatBalance renders a paise amount as a rupee string, e.g. 180000 -> "1800.00".
func FormatBalance(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	return fmt.Sprintf("%s%d.%02d", sign, paise/100, paise%100)
}
