package handler

import (
	"clusterchat/internal/app/chat"
	"clusterchat/internal/configs"
)

// AppDeps carries the shared dependencies HTTP handlers are constructed over.
type AppDeps struct {
	Service *chat.Service
	Config  *configs.AppConfig
}
