package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/aiaccountant/internal/dbx"
	"github.com/dmitrijs2005/aiaccountant/internal/server/repositories/messages"
	"github.com/dmitrijs2005/aiaccountant/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/aiaccountant/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/aiaccountant/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can run
// the same repository code on the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Messages(db dbx.DBTX) messages.Repository
}
