package config

import "sync"

var (
	globalConfig *Config
	globalMu     sync.RWMutex
)

// SetGlobalConfig 设置全局配置，必须在资源初始化之前调用
func SetGlobalConfig(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}

// GetGlobalConfig 获取全局配置
func GetGlobalConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}
