// Package api 暴露运维 HTTP 接口：直接投递一条消息、查询命令历史、
// 健康检查以及 Prometheus 指标。
package api
