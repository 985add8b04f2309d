package tokenstore

import (
	"errors"

	"github.com/dmitrijs2005/timecaddy/internal/common"
)

func isUnavailable(err error) bool {
	return errors.Is(err, common.ErrorTokenStoreUnavailable)
}
