package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"camscout/internal/camera"
	"camscout/internal/capture"
	"camscout/internal/codec"
	"camscout/internal/config"
	"camscout/internal/event"
)

// SessionHeader はストリームのセッションIDを運ぶヘッダ
const SessionHeader = "X-Session-ID"

// handler は各エンドポイントの実装
type handler struct {
	config *config.Config
	camera camera.Service
	broker *event.Broker
}

// ErrorResponse はエラー応答の形式
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Details   *string   `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type urlRequest struct {
	URL string `json:"url" binding:"required,url"`
}

type streamResponse struct {
	Session string `json:"session"`
	Message string `json:"message"`
}

// healthCheck はヘルスチェックエンドポイントの実装
func (h *handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

// getStatus はシステム状態取得エンドポイントの実装
func (h *handler) getStatus(c *gin.Context) {
	frame := gin.H{"available": false}
	if snap, ok := h.camera.Latest(); ok {
		b := snap.Image.Bounds()
		frame = gin.H{
			"available":   true,
			"seq":         snap.Seq,
			"captured_at": snap.CapturedAt,
			"width":       b.Dx(),
			"height":      b.Dy(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "running",
		"server": gin.H{
			"host": h.config.Server.Host,
			"port": h.config.Server.Port,
		},
		"streams":     h.camera.Streams(),
		"frame":       frame,
		"captures":    len(h.camera.History()),
		"subscribers": h.broker.Subscribers(),
		"timestamp":   time.Now(),
	})
}

// getOpenAPI は埋め込みのAPI定義を返す
func (h *handler) getOpenAPI(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml", openAPISpec)
}

// capture は単発キャプチャの実装
func (h *handler) capture(c *gin.Context) {
	var req urlRequest
	if !bindURL(c, &req) {
		return
	}

	msg, err := h.camera.Capture(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// save は共有フレームの保存の実装
func (h *handler) save(c *gin.Context) {
	filename, err := h.camera.Save(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  fmt.Sprintf("Saved scan as %s", filename),
		"filename": filename,
	})
}

// startStream はストリーム開始の実装
// セッションIDがなければ発行してヘッダで返す
func (h *handler) startStream(c *gin.Context) {
	var req urlRequest
	if !bindURL(c, &req) {
		return
	}

	session := c.GetHeader(SessionHeader)
	if session == "" {
		session = uuid.New().String()
	}

	if err := h.camera.StartStream(session, req.URL); err != nil {
		respondError(c, err)
		return
	}

	c.Header(SessionHeader, session)
	c.JSON(http.StatusOK, streamResponse{Session: session, Message: "Stream started"})
}

// stopStream はストリーム停止の実装
func (h *handler) stopStream(c *gin.Context) {
	session := c.GetHeader(SessionHeader)
	if session == "" {
		session = c.Query("session")
	}
	if session == "" {
		abortWithError(c, http.StatusBadRequest, "missing_session", "セッションIDが指定されていません", "")
		return
	}

	if err := h.camera.StopStream(session); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, streamResponse{Session: session, Message: "Stream stopped"})
}

// scan はネットワークスキャンの実装
func (h *handler) scan(c *gin.Context) {
	cameras, err := h.camera.Scan(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cameras": cameras})
}

// getPresets はプリセット一覧の実装
func (h *handler) getPresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"presets": h.camera.Presets()})
}

// getCaptures はキャプチャ履歴の実装
func (h *handler) getCaptures(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"captures": h.camera.History()})
}

// getLatestFrame は共有フレームをJPEGで返す
func (h *handler) getLatestFrame(c *gin.Context) {
	snap, ok := h.camera.Latest()
	if !ok {
		respondError(c, capture.ErrNoImage)
		return
	}

	data, err := codec.EncodeJPEG(snap.Image, h.config.Stream.JPEGQuality)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Last-Modified", snap.CapturedAt.UTC().Format(http.TimeFormat))
	c.Data(http.StatusOK, "image/jpeg", data)
}

// ヘルパー関数

// bindURL はURLを含むリクエストボディを読み込む
func bindURL(c *gin.Context, req *urlRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", "リクエストが不正です", err.Error())
		return false
	}
	return true
}

// respondError はエラーの種類に応じたステータスで応答する
func respondError(c *gin.Context, err error) {
	var (
		serverErr *capture.ServerError
		ctErr     *capture.InvalidContentTypeError
		codecErr  *codec.CodecError
		urlErr    *url.Error
	)

	switch {
	case errors.Is(err, capture.ErrInvalidURL):
		abortWithError(c, http.StatusBadRequest, "invalid_url", "カメラURLが不正です", err.Error())
	case errors.Is(err, capture.ErrNoImage):
		abortWithError(c, http.StatusNotFound, "no_image", "画像がまだ取得されていません", err.Error())
	case errors.Is(err, camera.ErrStreamNotRunning):
		abortWithError(c, http.StatusConflict, "stream_not_running", "ストリームは動作していません", err.Error())
	case errors.As(err, &ctErr):
		abortWithError(c, http.StatusUnsupportedMediaType, "invalid_content_type", "カメラが画像以外を返しました", err.Error())
	case errors.As(err, &serverErr):
		abortWithError(c, http.StatusBadGateway, "camera_error", "カメラがエラーを返しました", err.Error())
	case errors.As(err, &codecErr) && codecErr.Op == "decode":
		abortWithError(c, http.StatusBadGateway, "image_processing", "画像をデコードできません", err.Error())
	case errors.As(err, &urlErr):
		abortWithError(c, http.StatusBadGateway, "camera_unreachable", "カメラに接続できません", err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "internal_error", "内部エラーが発生しました", err.Error())
	}
}

// abortWithError はエラー応答を書いて処理を打ち切る
func abortWithError(c *gin.Context, status int, code, message, details string) {
	resp := ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now(),
	}
	if details != "" {
		resp.Details = &details
	}
	c.AbortWithStatusJSON(status, resp)
}
