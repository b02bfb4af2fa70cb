package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher 监听配置文件变化。配置在进程内不可变，所以它不做热更新，
// 只在文件被改写时回调一次：提醒运维重启进程，并顺带报告新文件是否能通过校验。
type Watcher struct {
	Path string
}

// ChangeFunc 收到文件变更时被调用；err 为新文件的校验结果（nil 表示可用）。
type ChangeFunc func(path string, err error)

// Start blocks until ctx is done, invoking onChange for each on-disk rewrite.
func (w Watcher) Start(ctx context.Context, onChange ChangeFunc) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// 监听目录而不是文件本身：编辑器多用 rename+create 改写，直接盯文件会丢事件
	dir := filepath.Dir(w.Path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(w.Path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if onChange != nil {
				_, loadErr := Load(w.Path)
				onChange(w.Path, loadErr)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if onChange != nil {
				onChange(w.Path, err)
			}
		}
	}
}
