package qq

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Font is the text style descriptor carried by every chat message.
type Font struct {
	Name  string `json:"name"`
	Size  int    `json:"size"`
	Style []int  `json:"style"`
	Color string `json:"color"`
}

// DefaultFont is attached to every outgoing message.
var DefaultFont = Font{Name: "宋体", Size: 10, Style: []int{0, 0, 0}, Color: "000000"}

// Content is a decoded message body. On the wire it is an array whose first
// element is ["font", {...}] followed by text segments and face markers.
type Content struct {
	Text string `json:"text"`
	Font Font   `json:"font"`
}

func (c *Content) UnmarshalJSON(data []byte) error {
	var segments []json.RawMessage
	if err := json.Unmarshal(data, &segments); err != nil {
		return err
	}
	var sb strings.Builder
	for _, seg := range segments {
		var text string
		if err := json.Unmarshal(seg, &text); err == nil {
			sb.WriteString(text)
			continue
		}
		var tagged []json.RawMessage
		if err := json.Unmarshal(seg, &tagged); err != nil || len(tagged) < 2 {
			continue
		}
		var tag string
		if err := json.Unmarshal(tagged[0], &tag); err != nil {
			continue
		}
		switch tag {
		case "font":
			_ = json.Unmarshal(tagged[1], &c.Font)
		case "face":
			fmt.Fprintf(&sb, "[face:%s]", strings.TrimSpace(string(tagged[1])))
		}
	}
	c.Text = sb.String()
	return nil
}

// encodeContent builds the content field of a send call: a JSON string
// holding [text, ["font", DefaultFont]].
func encodeContent(text string) (string, error) {
	data, err := json.Marshal([]any{text, []any{"font", DefaultFont}})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Message is a private message from a friend.
type Message struct {
	MsgID   int64   `json:"msg_id"`
	FromUin int64   `json:"from_uin"`
	ToUin   int64   `json:"to_uin"`
	Time    int64   `json:"time"`
	Content Content `json:"content"`
}

// GroupMessage is a message posted to a group. FromUin is the group uin and
// SendUin the member who posted it.
type GroupMessage struct {
	MsgID     int64   `json:"msg_id"`
	GroupCode int64   `json:"group_code"`
	FromUin   int64   `json:"from_uin"`
	SendUin   int64   `json:"send_uin"`
	ToUin     int64   `json:"to_uin"`
	Time      int64   `json:"time"`
	Content   Content `json:"content"`
}

// DiscussMessage is a message posted to a discussion.
type DiscussMessage struct {
	MsgID     int64   `json:"msg_id"`
	DiscussID int64   `json:"did"`
	FromUin   int64   `json:"from_uin"`
	SendUin   int64   `json:"send_uin"`
	ToUin     int64   `json:"to_uin"`
	Time      int64   `json:"time"`
	Content   Content `json:"content"`
}

// Group is an entry of the group list.
type Group struct {
	ID   int64  `json:"gid"`
	Code int64  `json:"code"`
	Flag int64  `json:"flag"`
	Name string `json:"name"`
}

// Discuss is an entry of the discussion list.
type Discuss struct {
	ID   int64  `json:"did"`
	Name string `json:"name"`
}

// Friend joins the info, markname and vip records of one buddy.
type Friend struct {
	Uin      int64  `json:"uin"`
	Nickname string `json:"nickname"`
	Markname string `json:"markname,omitempty"`
	VIP      bool   `json:"vip"`
	VIPLevel int    `json:"vip_level"`
}

// Category is a friend group with its members.
type Category struct {
	Index   int      `json:"index"`
	Sort    int      `json:"sort"`
	Name    string   `json:"name"`
	Friends []Friend `json:"friends"`
}

// DefaultCategoryName labels category 0, which the service never lists.
const DefaultCategoryName = "我的好友"

// Recent is a recent conversation. Type is 0 for a friend, 1 for a group and
// 2 for a discussion.
type Recent struct {
	Uin  int64 `json:"uin"`
	Type int   `json:"type"`
}

// FriendStatus is the online state of one buddy.
type FriendStatus struct {
	Uin        int64  `json:"uin"`
	Status     string `json:"status"`
	ClientType int    `json:"client_type"`
}

// Birthday is part of UserInfo.
type Birthday struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// UserInfo is the profile of the logged in account or of a friend.
type UserInfo struct {
	Uin        int64    `json:"uin"`
	Account    int64    `json:"account"`
	Nick       string   `json:"nick"`
	Lnick      string   `json:"lnick"`
	Gender     string   `json:"gender"`
	Birthday   Birthday `json:"birthday"`
	Occupation string   `json:"occupation"`
	Phone      string   `json:"phone"`
	Mobile     string   `json:"mobile"`
	Email      string   `json:"email"`
	College    string   `json:"college"`
	Blood      int      `json:"blood"`
	Homepage   string   `json:"homepage"`
	VIPInfo    int      `json:"vip_info"`
	Country    string   `json:"country"`
	Province   string   `json:"province"`
	City       string   `json:"city"`
	Personal   string   `json:"personal"`
	Shengxiao  int      `json:"shengxiao"`
}

// GroupUser is a group member with its presence, card and vip state.
type GroupUser struct {
	Uin        int64  `json:"uin"`
	Nick       string `json:"nick"`
	Province   string `json:"province"`
	Gender     string `json:"gender"`
	Country    string `json:"country"`
	City       string `json:"city"`
	Card       string `json:"card,omitempty"`
	ClientType int    `json:"client_type"`
	Status     int    `json:"status"`
	VIP        bool   `json:"vip"`
	VIPLevel   int    `json:"vip_level"`
}

// GroupInfo is the detail view of a group.
type GroupInfo struct {
	ID         int64       `json:"gid"`
	CreateTime int64       `json:"createtime"`
	Memo       string      `json:"memo"`
	Name       string      `json:"name"`
	Owner      int64       `json:"owner"`
	Markname   string      `json:"markname"`
	Users      []GroupUser `json:"users"`
}

// DiscussUser is a discussion member with its presence.
type DiscussUser struct {
	Uin        int64  `json:"uin"`
	Nick       string `json:"nick"`
	ClientType int    `json:"client_type"`
	Status     string `json:"status"`
}

// DiscussInfo is the detail view of a discussion.
type DiscussInfo struct {
	ID    int64         `json:"did"`
	Name  string        `json:"discu_name"`
	Users []DiscussUser `json:"users"`
}
