package account

// SeedAccounts returns the fixed demo directory the terminal ships with.
// Balances are in paise.
func SeedAccounts() ([]Account, error) {
	seeds := []struct {
		number  int
		holder  string
		balance int64
		pin     string
		cardID  int64
	}{
		{1001, "Tanmay Ravindra Padale", 180_000, "1234", 8825},
		{1002, "Swayam Bagul", 150_050, "5678", 7787},
		{1003, "Yash Pratap Gautam", 200_000, "1111", 5887},
	}

	accounts := make([]Account, 0, len(seeds))
	for _, s := range seeds {
		hash, err := HashPIN(s.pin)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, Account{
			Number:  s.number,
			Holder:  s.holder,
			Balance: s.balance,
			PINHash: hash,
			CardID:  s.cardID,
		})
	}
	return accounts, nil
}
