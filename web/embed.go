// Package web 提供嵌入式前端静态资源
package web

import (
	"embed"
)

//go:embed static/*
var staticFS embed.FS

// WidgetScript 返回嵌入式聊天挂件脚本
func WidgetScript() ([]byte, error) {
	return staticFS.ReadFile("static/widget.js")
}
