package manager

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"merge-service/pkg/config"
	"merge-service/pkg/logger"
)

// Dependencies 依赖注入容器，在应用启动时装配
type Dependencies struct {
	DB              *gorm.DB
	Config          *config.Config
	UploadAppService interface{}
	MergeAppService  interface{}
}

// Resource 外部资源（数据库、缓存、消息队列等）
type Resource interface {
	MustOpen()
	Close()
}

// ResourcePlugin 资源插件
type ResourcePlugin interface {
	Name() string
	MustCreateResource() Resource
}

// Service 领域服务
type Service interface{}

// ServicePlugin 服务插件
type ServicePlugin interface {
	Name() string
	MustCreateService(deps *Dependencies) Service
}

// Component 后台组件，随应用启动/停止
type Component interface {
	Start() error
	Stop() error
	GetName() string
}

// ComponentPlugin 组件插件
type ComponentPlugin interface {
	Name() string
	MustCreateComponent(deps *Dependencies) Component
}

// Controller HTTP控制器
type Controller interface {
	RegisterRoutes(engine *gin.Engine)
}

// ControllerPlugin 控制器插件
type ControllerPlugin interface {
	Name() string
	MustCreateController() Controller
}

var (
	mu                sync.Mutex
	resourcePlugins   []ResourcePlugin
	servicePlugins    []ServicePlugin
	componentPlugins  []ComponentPlugin
	controllerPlugins []ControllerPlugin

	openedResources   []Resource
	startedComponents []Component
	controllers       []Controller
)

// RegisterResourcePlugin 注册资源插件，在包init阶段调用
func RegisterResourcePlugin(p ResourcePlugin) {
	mu.Lock()
	defer mu.Unlock()
	resourcePlugins = append(resourcePlugins, p)
}

// RegisterServicePlugin 注册服务插件
func RegisterServicePlugin(p ServicePlugin) {
	mu.Lock()
	defer mu.Unlock()
	servicePlugins = append(servicePlugins, p)
}

// RegisterComponentPlugin 注册组件插件
func RegisterComponentPlugin(p ComponentPlugin) {
	mu.Lock()
	defer mu.Unlock()
	componentPlugins = append(componentPlugins, p)
}

// RegisterControllerPlugin 注册控制器插件
func RegisterControllerPlugin(p ControllerPlugin) {
	mu.Lock()
	defer mu.Unlock()
	controllerPlugins = append(controllerPlugins, p)
}

// MustInitResources 打开所有资源，失败直接panic
func MustInitResources() {
	mu.Lock()
	defer mu.Unlock()
	for _, p := range resourcePlugins {
		logger.Infof("Opening resource name=%s", p.Name())
		r := p.MustCreateResource()
		r.MustOpen()
		openedResources = append(openedResources, r)
	}
}

// CloseResources 逆序关闭所有资源
func CloseResources() {
	mu.Lock()
	defer mu.Unlock()
	for i := len(openedResources) - 1; i >= 0; i-- {
		openedResources[i].Close()
	}
	openedResources = nil
}

// MustInitServices 初始化所有服务插件
func MustInitServices(deps *Dependencies) {
	mu.Lock()
	defer mu.Unlock()
	for _, p := range servicePlugins {
		logger.Infof("Initializing service name=%s", p.Name())
		p.MustCreateService(deps)
	}
}

// MustInitComponents 创建并启动所有组件
func MustInitComponents(deps *Dependencies) {
	mu.Lock()
	defer mu.Unlock()
	for _, p := range componentPlugins {
		c := p.MustCreateComponent(deps)
		if err := c.Start(); err != nil {
			panic(fmt.Sprintf("failed to start component %s: %v", c.GetName(), err))
		}
		logger.Infof("Component started name=%s", c.GetName())
		startedComponents = append(startedComponents, c)
	}
}

// RegisterAllRoutes 创建所有控制器并挂载路由
func RegisterAllRoutes(engine *gin.Engine) {
	mu.Lock()
	defer mu.Unlock()
	for _, p := range controllerPlugins {
		c := p.MustCreateController()
		c.RegisterRoutes(engine)
		controllers = append(controllers, c)
		logger.Infof("Controller routes registered name=%s", p.Name())
	}
}

// Shutdown 逆序停止所有组件
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()
	for i := len(startedComponents) - 1; i >= 0; i-- {
		c := startedComponents[i]
		if err := c.Stop(); err != nil {
			logger.Warnf("Component stop error name=%s error=%v", c.GetName(), err)
		}
	}
	startedComponents = nil
}
