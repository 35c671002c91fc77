// Package storage 提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"context"
	"fmt"
	"io"

	"enstp-advisor-go/internal/config"
	"enstp-advisor-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// maxObjectSize 限制读取的参考文档大小，防止误配置把大文件整个读入内存。
const maxObjectSize = 4 << 20

// NewMinIOClient 初始化 MinIO 客户端。
func NewMinIOClient(cfg config.MinIOConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}
	return client, nil
}

// FetchText 下载一个对象并以字符串返回其内容。
func FetchText(ctx context.Context, client *minio.Client, bucketName, objectName string) (string, error) {
	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return "", fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		return "", fmt.Errorf("存储桶 '%s' 不存在", bucketName)
	}

	obj, err := client.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("获取对象 %s/%s 失败: %w", bucketName, objectName, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, maxObjectSize+1))
	if err != nil {
		return "", fmt.Errorf("读取对象 %s/%s 失败: %w", bucketName, objectName, err)
	}
	if len(data) > maxObjectSize {
		return "", fmt.Errorf("对象 %s/%s 超过 %d 字节", bucketName, objectName, maxObjectSize)
	}

	log.Infow("knowledge object fetched", "bucket", bucketName, "object", objectName, "bytes", len(data))
	return string(data), nil
}
