package model

import (
	"net"
	"strconv"
)

// Endpoint 是一个 "host:port" 形式的代理地址（不带 scheme）。
// 字符串本身就是它的唯一标识，用作去重键。
type Endpoint string

// Valid 报告 e 是否是一个可用的 "host:port"：host 非空，port 为 1-65535 的数字。
func (e Endpoint) Valid() bool {
	host, portStr, err := net.SplitHostPort(string(e))
	if err != nil || host == "" {
		return false
	}
	port, err := strconv.Atoi(portStr)
	return err == nil && port > 0 && port <= 65535
}

func (e Endpoint) String() string {
	return string(e)
}

// URL 返回将该端点作为 HTTP 代理使用时的地址。
func (e Endpoint) URL() string {
	return "http://" + string(e)
}

// Pool 是一次推广运行期间的代理集合，按值去重，无序。
// Pool 不是并发安全的，只由单个 goroutine 持有。
type Pool struct {
	set   map[Endpoint]struct{}
	order []Endpoint
}

// NewPool 创建一个空的 Pool。
func NewPool() *Pool {
	return &Pool{set: make(map[Endpoint]struct{})}
}

// Add 将端点并入集合，返回其中新加入的数量。空字符串会被忽略。
func (p *Pool) Add(endpoints ...Endpoint) int {
	added := 0
	for _, e := range endpoints {
		if e == "" {
			continue
		}
		if _, exists := p.set[e]; exists {
			continue
		}
		p.set[e] = struct{}{}
		p.order = append(p.order, e)
		added++
	}
	return added
}

// Len 返回集合中不同端点的数量。
func (p *Pool) Len() int {
	return len(p.order)
}

// Contains reports whether e is in the pool.
func (p *Pool) Contains(e Endpoint) bool {
	_, ok := p.set[e]
	return ok
}

// Endpoints returns a snapshot of the pool in insertion order.
func (p *Pool) Endpoints() []Endpoint {
	out := make([]Endpoint, len(p.order))
	copy(out, p.order)
	return out
}
