package observability

import (
	"os"
	"runtime"
	"strings"

	"github.com/grafana/pyroscope-go"

	"merge-service/pkg/logger"
)

// StartProfiling 启动pyroscope持续剖析，未配置服务端地址时跳过
func StartProfiling(appName string) {
	serverAddr := strings.TrimSpace(os.Getenv("PYROSCOPE_SERVER_ADDRESS"))
	if serverAddr == "" {
		return
	}

	runtime.SetMutexProfileFraction(5)
	runtime.SetBlockProfileRate(5)

	_, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   serverAddr,
		AuthToken:       os.Getenv("PYROSCOPE_AUTH_TOKEN"),
		Tags: map[string]string{
			"hostname": hostname(),
		},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
			pyroscope.ProfileMutexCount,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockCount,
			pyroscope.ProfileBlockDuration,
		},
	})
	if err != nil {
		logger.Warnf("Failed to start profiling error=%v", err)
		return
	}
	logger.Infof("Profiling started app=%s server=%s", appName, serverAddr)
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
