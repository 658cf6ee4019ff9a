package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// User-recoverable game errors. Each is reported only to the connection
// that caused it, never broadcast, never fatal to the room.
var (
	errRoomNotFound      = errors.New("房间不存在")
	errRoomFull          = errors.New("房间已满")
	errInvalidName       = errors.New("请输入你的名字")
	errGameAlreadyActive = errors.New("游戏已经开始")
	errGameNotActive     = errors.New("游戏尚未开始")
	errNotYourTurn       = errors.New("还没轮到你行动")
	errPlayerLocked      = errors.New("你当前无法行动")
	errInvalidKeyword    = errors.New("无效的组合，请输入两个关键词，例如：水潭+乌龟")
	errNoSuchCombination = errors.New("这个组合没有任何效果")
	errWrongPassword     = errors.New("密码错误，再想想字母的顺序")
	errReconnectTarget   = errors.New("找不到可以恢复的玩家身份")
	errNotInRoom         = errors.New("你不在任何房间内")
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
