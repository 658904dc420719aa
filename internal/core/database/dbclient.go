package db

import (
	"github.com/bidbot-ai/bidbot/internal/core"
)

// DbClient is the persistence contract implemented by this package.
// Services depend on core.DbClient; this alias keeps the constructor's
// return type local to the package.
type DbClient = core.DbClient
