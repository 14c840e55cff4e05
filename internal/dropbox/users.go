package dropbox

import (
	"context"
	"log/slog"
)

const endpointCurrentAccount = "users/get_current_account"

// CurrentAccount returns the authenticated user. It is the cheapest
// authenticated round trip the API offers, so it doubles as a health check.
func (c *Client) CurrentAccount(ctx context.Context) (*Account, error) {
	if err := c.begin(ctx, 0); err != nil {
		return nil, err
	}

	full, err := c.users.GetCurrentAccount()
	if err != nil {
		return nil, c.classify(ctx, endpointCurrentAccount, err)
	}

	acct := &Account{
		ID:      full.AccountId,
		Email:   full.Email,
		Country: full.Country,
	}

	if full.Name != nil {
		acct.DisplayName = full.Name.DisplayName
	}

	c.logger.Debug("fetched current account", slog.String("account_id", acct.ID))

	return acct, nil
}
