package qq

import (
	"context"

	"go.uber.org/zap"
)

// faceCode is the avatar code the web client attaches to outgoing messages.
const faceCode = 573

// SendToFriend sends text to a buddy and returns the message id it used.
func (c *Client) SendToFriend(ctx context.Context, uin int64, text string) (int64, error) {
	return c.send(ctx, "send to friend", c.endpoints.SendToFriend, "to", uin, text)
}

// SendToGroup sends text to a group, addressed by its gid.
func (c *Client) SendToGroup(ctx context.Context, gid int64, text string) (int64, error) {
	return c.send(ctx, "send to group", c.endpoints.SendToGroup, "group_uin", gid, text)
}

// SendToDiscuss sends text to a discussion.
func (c *Client) SendToDiscuss(ctx context.Context, did int64, text string) (int64, error) {
	return c.send(ctx, "send to discuss", c.endpoints.SendToDiscuss, "did", did, text)
}

// send consumes one message id whether or not the call succeeds, so ids are
// never reused.
func (c *Client) send(ctx context.Context, op string, ep Endpoint, destKey string, dest int64, text string) (int64, error) {
	s, err := c.established()
	if err != nil {
		return 0, err
	}
	content, err := encodeContent(text)
	if err != nil {
		return 0, protocolError(op, "content is not serializable", err)
	}
	id := c.msgIDs.Next()

	raw, err := c.post(ctx, ep, map[string]any{
		destKey:      dest,
		"content":    content,
		"face":       faceCode,
		"clientid":   ClientID,
		"msg_id":     id,
		"psessionid": s.Psessionid,
	})
	if err == nil {
		err = checkSendResult(op, raw)
	}
	if err != nil {
		c.logger.Warn("send failed", zap.String("op", op), zap.Int64("dest", dest), zap.Int64("msg_id", id), zap.Error(err))
		return id, err
	}
	c.logger.Debug("sent", zap.String("op", op), zap.Int64("dest", dest), zap.Int64("msg_id", id))
	return id, nil
}
