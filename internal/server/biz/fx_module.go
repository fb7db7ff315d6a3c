package biz

import (
	"go.uber.org/fx"
)

var Module = fx.Module("biz",
	fx.Provide(NewOrganizationService),
	fx.Provide(NewDocumentService),
)
