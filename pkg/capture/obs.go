package capture

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	opHello      = 0
	opIdentify   = 1
	opIdentified = 2
	opRequest    = 6
	opResponse   = 7
)

// OBSClient drives OBS over the obs-websocket v5 protocol. Only the record
// output controls are implemented; requests are serialized on one socket.
type OBSClient struct {
	addr     string
	password string

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewOBSClient(addr, password string) *OBSClient {
	return &OBSClient{addr: addr, password: password}
}

type message struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

type helloData struct {
	Authentication *struct {
		Challenge string `json:"challenge"`
		Salt      string `json:"salt"`
	} `json:"authentication"`
}

type requestData struct {
	RequestType string         `json:"requestType"`
	RequestID   string         `json:"requestId"`
	RequestData map[string]any `json:"requestData,omitempty"`
}

type responseData struct {
	RequestID     string `json:"requestId"`
	RequestStatus struct {
		Result  bool   `json:"result"`
		Comment string `json:"comment"`
	} `json:"requestStatus"`
}

// Connect dials OBS and completes the Hello/Identify handshake.
func (c *OBSClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, fmt.Sprintf("ws://%s", c.addr), nil)
	if err != nil {
		return fmt.Errorf("dial obs: %w", err)
	}

	var hello message
	if err := conn.ReadJSON(&hello); err != nil {
		conn.Close()
		return fmt.Errorf("read hello: %w", err)
	}

	var helloPayload helloData
	if err := json.Unmarshal(hello.D, &helloPayload); err != nil {
		conn.Close()
		return fmt.Errorf("parse hello: %w", err)
	}

	identify := map[string]any{"rpcVersion": 1}
	if helloPayload.Authentication != nil {
		identify["authentication"] = authenticate(c.password, helloPayload.Authentication.Salt, helloPayload.Authentication.Challenge)
	}
	identifyPayload, _ := json.Marshal(identify)
	if err := conn.WriteJSON(message{Op: opIdentify, D: identifyPayload}); err != nil {
		conn.Close()
		return fmt.Errorf("send identify: %w", err)
	}

	var identified message
	if err := conn.ReadJSON(&identified); err != nil || identified.Op != opIdentified {
		conn.Close()
		return fmt.Errorf("identify rejected: %w", err)
	}

	c.conn = conn
	return nil
}

func (c *OBSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *OBSClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *OBSClient) Start(ctx context.Context) error {
	return c.call(ctx, "StartRecord")
}

func (c *OBSClient) Stop(ctx context.Context) error {
	return c.call(ctx, "StopRecord")
}

// Rotate seals the current output file and immediately begins the next one.
// OBS needs a beat between stop and start for the file to be finalized.
func (c *OBSClient) Rotate(ctx context.Context) error {
	if err := c.call(ctx, "StopRecord"); err != nil {
		return err
	}
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
		return ctx.Err()
	}
	return c.call(ctx, "StartRecord")
}

func (c *OBSClient) call(ctx context.Context, requestType string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("obs not connected")
	}

	req := requestData{RequestType: requestType, RequestID: uuid.NewString()}
	payload, _ := json.Marshal(req)
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(deadline)
		_ = c.conn.SetWriteDeadline(deadline)
	} else {
		_ = c.conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	}
	if err := c.conn.WriteJSON(message{Op: opRequest, D: payload}); err != nil {
		return fmt.Errorf("send %s: %w", requestType, err)
	}

	// OBS may interleave event messages; skip anything that is not our response.
	for {
		var msg message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read %s response: %w", requestType, err)
		}
		if msg.Op != opResponse {
			continue
		}
		var resp responseData
		if err := json.Unmarshal(msg.D, &resp); err != nil {
			return fmt.Errorf("parse %s response: %w", requestType, err)
		}
		if resp.RequestID != req.RequestID {
			continue
		}
		if !resp.RequestStatus.Result {
			return fmt.Errorf("%s failed: %s", requestType, resp.RequestStatus.Comment)
		}
		return nil
	}
}

// authenticate derives the obs-websocket v5 auth string:
// base64(sha256(base64(sha256(password+salt)) + challenge)).
func authenticate(password, salt, challenge string) string {
	secretSum := sha256.Sum256([]byte(password + salt))
	secret := base64.StdEncoding.EncodeToString(secretSum[:])
	authSum := sha256.Sum256([]byte(secret + challenge))
	return base64.StdEncoding.EncodeToString(authSum[:])
}
