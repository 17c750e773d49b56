package store

import (
	"sort"

	"github.com/efreitasn/minivenue/internal/domain"
)

// AccountStore is an in-memory store for accounts, keyed by email.
// It is not safe for concurrent use: the ledger goroutine owns it.
type AccountStore struct {
	accounts map[string]*domain.Account
}

// NewAccountStore creates an empty AccountStore.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[string]*domain.Account),
	}
}

// Create adds an account to the store. It returns
// domain.ErrAlreadyExists if an account with the same email exists.
func (s *AccountStore) Create(a *domain.Account) error {
	if _, exists := s.accounts[a.Email]; exists {
		return domain.ErrAlreadyExists
	}
	s.accounts[a.Email] = a
	return nil
}

// Get retrieves an account by email. It returns domain.ErrNotFound if
// the account does not exist.
func (s *AccountStore) Get(email string) (*domain.Account, error) {
	a, ok := s.accounts[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

// Exists returns true if an account with the given email exists.
func (s *AccountStore) Exists(email string) bool {
	_, ok := s.accounts[email]
	return ok
}

// Put replaces the stored account for a.Email.
func (s *AccountStore) Put(a *domain.Account) {
	s.accounts[a.Email] = a
}

// Len returns the number of accounts.
func (s *AccountStore) Len() int {
	return len(s.accounts)
}

// Each calls fn for every account in email order until fn returns false.
func (s *AccountStore) Each(fn func(*domain.Account) bool) {
	emails := make([]string, 0, len(s.accounts))
	for email := range s.accounts {
		emails = append(emails, email)
	}
	sort.Strings(emails)
	for _, email := range emails {
		if !fn(s.accounts[email]) {
			return
		}
	}
}
