// Package knowledge 提供学生咨询时引用的参考文档（ENSTP DMS/DIB 指南）。
// 文档在进程启动时加载一次，之后只读，可被所有会话共享。
package knowledge

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"enstp-advisor-go/internal/config"
	"enstp-advisor-go/pkg/storage"
)

//go:embed guide_summary.txt
var summaryGuide string

//go:embed guide_full.txt
var fullGuide string

// ErrEmptyDocument 表示加载到的文档为空，属于启动期致命错误。
var ErrEmptyDocument = errors.New("knowledge document is empty")

// Document 是不可变的参考文档。
type Document struct {
	source string
	text   string
}

// New 包装一段文本为 Document，空文本返回 ErrEmptyDocument。
func New(source, text string) (Document, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Document{}, fmt.Errorf("%s: %w", source, ErrEmptyDocument)
	}
	return Document{source: source, text: text}, nil
}

// Summary 返回内置的精简指南。
func Summary() Document {
	return Document{source: "summary", text: strings.TrimSpace(summaryGuide)}
}

// Full 返回内置的完整指南。
func Full() Document {
	return Document{source: "full", text: strings.TrimSpace(fullGuide)}
}

// Text 返回文档正文。
func (d Document) Text() string { return d.text }

// Source 返回文档来源描述。
func (d Document) Source() string { return d.source }

// Load 按配置选择文档来源。
func Load(ctx context.Context, cfg config.KnowledgeConfig) (Document, error) {
	switch cfg.Source {
	case "", "summary":
		return Summary(), nil
	case "full":
		return Full(), nil
	case "file":
		data, err := os.ReadFile(cfg.Path)
		if err != nil {
			return Document{}, fmt.Errorf("read knowledge file: %w", err)
		}
		return New(cfg.Path, string(data))
	case "minio":
		client, err := storage.NewMinIOClient(cfg.MinIO)
		if err != nil {
			return Document{}, err
		}
		text, err := storage.FetchText(ctx, client, cfg.MinIO.BucketName, cfg.MinIO.ObjectName)
		if err != nil {
			return Document{}, err
		}
		return New("minio://"+cfg.MinIO.BucketName+"/"+cfg.MinIO.ObjectName, text)
	default:
		return Document{}, fmt.Errorf("unknown knowledge source %q", cfg.Source)
	}
}
