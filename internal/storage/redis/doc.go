// Package redis 提供基于 Redis 哈希的用户钱包存储，适合多实例部署共享状态。
package redis
