// Package autoload configures the global logger from LOG_* variables when
// imported for side effects.
package autoload

import (
	configx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/pkg/config"
	logx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
