package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/opsre/chatgate/internal/model"
	"github.com/opsre/chatgate/internal/service"
)

// maxDesignConfigBytes 挂件外观配置的大小上限
const maxDesignConfigBytes = 100 * 1024

// designSchema 保存请求的载荷约束
var designSchema = jsonschema.MustCompileString("design.json", `{
	"type": "object",
	"properties": {
		"name": {"type": "string", "minLength": 1, "maxLength": 200},
		"config": {},
		"previewSnapshot": {"type": "string", "maxLength": 20000}
	},
	"required": ["config"]
}`)

// DesignHandler 挂件外观配置处理器
type DesignHandler struct {
	designs *service.DesignService
}

// NewDesignHandler 创建挂件外观配置处理器
func NewDesignHandler(designs *service.DesignService) *DesignHandler {
	return &DesignHandler{designs: designs}
}

// Save 保存或更新外观配置
func (h *DesignHandler) Save(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		fail(c, http.StatusBadRequest, "Invalid payload")
		return
	}

	if err := designSchema.Validate(payload); err != nil {
		fail(c, http.StatusBadRequest, "Invalid payload: "+err.Error())
		return
	}

	name := "default"
	if v, ok := payload["name"].(string); ok && v != "" {
		name = v
	}

	config, ok := payload["config"].(map[string]any)
	if !ok {
		fail(c, http.StatusBadRequest, "Invalid payload: config must be an object")
		return
	}

	// 配置大小上限
	configJSON, err := json.Marshal(config)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid payload")
		return
	}
	if len(configJSON) > maxDesignConfigBytes {
		fail(c, http.StatusRequestEntityTooLarge, "Config too big")
		return
	}

	previewSnapshot, _ := payload["previewSnapshot"].(string)

	design := &model.ChatDesign{
		UserID:          actorIDFromContext(c),
		Name:            name,
		Config:          model.JSONMap(config),
		PreviewSnapshot: previewSnapshot,
	}

	if err := h.designs.Save(design); err != nil {
		fail(c, http.StatusInternalServerError, "Database error")
		return
	}

	success(c, design)
}

// Get 获取指定名称的外观配置
func (h *DesignHandler) Get(c *gin.Context) {
	name := c.Param("name")

	design, err := h.designs.Get(actorIDFromContext(c), name)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Database error")
		return
	}
	if design == nil {
		fail(c, http.StatusNotFound, "Not found")
		return
	}

	success(c, design)
}
