package llm

import "context"

// Completer 定义了单轮对话补全的统一接口：一条系统指令加一条用户输入，
// 返回模型的文本回复。实现不做流式输出。
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// CompleterFunc 允许使用普通函数实现 Completer。
type CompleterFunc func(ctx context.Context, system, user string) (string, error)

// Complete 实现 Completer。
func (f CompleterFunc) Complete(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}
