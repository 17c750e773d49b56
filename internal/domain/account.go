package domain

import (
	"fmt"
	"time"
)

// Account is a user's position on the venue. Balance is in quote units,
// Holdings in base units. The Reserved fields track escrow taken by open
// orders; 0 <= Reserved <= total always holds for both currencies.
type Account struct {
	Email            string
	PasswordHash     []byte
	Balance          int64
	Holdings         int64
	ReservedBalance  int64
	ReservedHoldings int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AvailableBalance returns the unreserved quote balance.
func (a *Account) AvailableBalance() int64 {
	return a.Balance - a.ReservedBalance
}

// AvailableHoldings returns the unreserved base holdings.
func (a *Account) AvailableHoldings() int64 {
	return a.Holdings - a.ReservedHoldings
}

// Check verifies the account invariants.
func (a *Account) Check() error {
	if a.ReservedBalance < 0 || a.ReservedHoldings < 0 {
		return fmt.Errorf("%w: account %s has negative reservation (balance=%d holdings=%d)",
			ErrEscrowViolation, a.Email, a.ReservedBalance, a.ReservedHoldings)
	}
	if a.Balance < a.ReservedBalance {
		return fmt.Errorf("%w: account %s balance %d below reserved %d",
			ErrEscrowViolation, a.Email, a.Balance, a.ReservedBalance)
	}
	if a.Holdings < a.ReservedHoldings {
		return fmt.Errorf("%w: account %s holdings %d below reserved %d",
			ErrEscrowViolation, a.Email, a.Holdings, a.ReservedHoldings)
	}
	return nil
}

// Deposit credits external funding.
func (a *Account) Deposit(deltaBalance, deltaHoldings int64) error {
	if deltaBalance < 0 || deltaHoldings < 0 {
		return ErrInvalidAmount
	}
	balance, err := addAmount(a.Balance, deltaBalance)
	if err != nil {
		return err
	}
	holdings, err := addAmount(a.Holdings, deltaHoldings)
	if err != nil {
		return err
	}
	a.Balance, a.Holdings = balance, holdings
	return nil
}

// EscrowFor returns the amount an order of side for qty at price locks:
// quote units for a bid, base units for an ask.
func EscrowFor(side Side, qty, price int64) (int64, error) {
	if qty <= 0 {
		return 0, ErrInvalidOrder
	}
	switch side {
	case SideBid:
		if price <= 0 {
			return 0, ErrInvalidOrder
		}
		return Notional(qty, price)
	case SideAsk:
		return qty, nil
	}
	return 0, ErrInvalidOrder
}

// Reserve moves the escrow for an order from available into reserved.
func (a *Account) Reserve(side Side, qty, price int64) error {
	amount, err := EscrowFor(side, qty, price)
	if err != nil {
		return err
	}
	if side == SideBid {
		if a.AvailableBalance() < amount {
			return ErrInsufficientFunds
		}
		a.ReservedBalance += amount
		return nil
	}
	if a.AvailableHoldings() < amount {
		return ErrInsufficientHoldings
	}
	a.ReservedHoldings += amount
	return nil
}

// Release returns escrow taken by Reserve. Releasing more than is reserved
// is an escrow violation; the account is left unchanged.
func (a *Account) Release(side Side, qty, price int64) error {
	amount, err := EscrowFor(side, qty, price)
	if err != nil {
		return err
	}
	if side == SideBid {
		if a.ReservedBalance < amount {
			return fmt.Errorf("%w: release %d from %s reserved balance %d",
				ErrEscrowViolation, amount, a.Email, a.ReservedBalance)
		}
		a.ReservedBalance -= amount
		return nil
	}
	if a.ReservedHoldings < amount {
		return fmt.Errorf("%w: release %d from %s reserved holdings %d",
			ErrEscrowViolation, amount, a.Email, a.ReservedHoldings)
	}
	a.ReservedHoldings -= amount
	return nil
}

// SettleBuy applies the buyer's half of a trade: the escrow taken at
// reservedPrice is released, the balance is debited at price and the
// holdings are credited. The account is unchanged on error.
func (a *Account) SettleBuy(qty, price, reservedPrice int64) error {
	release, err := Notional(qty, reservedPrice)
	if err != nil {
		return err
	}
	cost, err := Notional(qty, price)
	if err != nil {
		return err
	}
	if a.ReservedBalance < release {
		return fmt.Errorf("%w: buyer %s reserved balance %d cannot cover release %d",
			ErrEscrowViolation, a.Email, a.ReservedBalance, release)
	}
	holdings, err := addAmount(a.Holdings, qty)
	if err != nil {
		return err
	}
	next := *a
	next.ReservedBalance -= release
	next.Balance -= cost
	next.Holdings = holdings
	if err := next.Check(); err != nil {
		return err
	}
	*a = next
	return nil
}

// SettleSell applies the seller's half of a trade. The account is
// unchanged on error.
func (a *Account) SettleSell(qty, price int64) error {
	proceeds, err := Notional(qty, price)
	if err != nil {
		return err
	}
	if a.ReservedHoldings < qty {
		return fmt.Errorf("%w: seller %s reserved holdings %d cannot cover %d",
			ErrEscrowViolation, a.Email, a.ReservedHoldings, qty)
	}
	balance, err := addAmount(a.Balance, proceeds)
	if err != nil {
		return err
	}
	next := *a
	next.ReservedHoldings -= qty
	next.Holdings -= qty
	next.Balance = balance
	if err := next.Check(); err != nil {
		return err
	}
	*a = next
	return nil
}
