package assert

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// 单例创建深度上限，超过即认为存在循环依赖
const maxCreateDepth = 32

var createDepth int64

// NotCircular 守护单例创建链，检测到循环构造时panic
func NotCircular() {
	depth := atomic.AddInt64(&createDepth, 1)
	defer atomic.AddInt64(&createDepth, -1)
	if depth > maxCreateDepth {
		panic("circular singleton construction detected")
	}
}

// NotNil 断言值非nil，用于单例初始化之后的校验
func NotNil(v interface{}) {
	if v == nil {
		panic("assert: value is nil")
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		if rv.IsNil() {
			panic(fmt.Sprintf("assert: %T is nil", v))
		}
	}
}
