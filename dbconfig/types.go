package dbconfig

import (
	commonerrors "github.com/ClipFinance/juice-bot-relay/common/errors"
	"github.com/pkg/errors"
)

var (
	ErrDatabaseConnect = commonerrors.ErrDatabaseConnect
	ErrInvalidRecord   = errors.New("invalid database record")
)
