package model

import "telegram-club-subscription/internal/domain"

// Product identifiers for the two managed channels. Products are static
// configuration, not stored entities; the registry is built at startup.
const (
	ProductChannel1 = "channel_1"
	ProductChannel2 = "channel_2"
)

// MerchantAccount holds the Robokassa credential pair for one product.
// Password1 signs outgoing payment links, Password2 verifies notifications.
type MerchantAccount struct {
	Login     string
	Password1 string
	Password2 string
}

// Product is one access-controlled channel offered for subscription.
type Product struct {
	ID          string
	Title       string
	ChannelID   int64 // Telegram chat id of the private channel
	PriceRUB    int64
	Description string
	Merchant    MerchantAccount
}

// ProductSet is the fixed product registry keyed by product id.
// The primary product is the one the free trial (and the bonus grant) applies to.
type ProductSet struct {
	byID    map[string]*Product
	ordered []*Product
	primary string
}

func NewProductSet(products []*Product, primaryID string) (*ProductSet, error) {
	if len(products) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	s := &ProductSet{byID: make(map[string]*Product, len(products)), primary: primaryID}
	for _, p := range products {
		if p.ID == "" {
			return nil, domain.ErrInvalidArgument
		}
		s.byID[p.ID] = p
		s.ordered = append(s.ordered, p)
	}
	if _, ok := s.byID[primaryID]; !ok {
		return nil, domain.ErrInvalidArgument
	}
	return s, nil
}

func (s *ProductSet) Get(id string) (*Product, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrUnknownProduct
	}
	return p, nil
}

func (s *ProductSet) Primary() *Product { return s.byID[s.primary] }

func (s *ProductSet) IsPrimary(id string) bool { return id == s.primary }

func (s *ProductSet) All() []*Product { return s.ordered }
