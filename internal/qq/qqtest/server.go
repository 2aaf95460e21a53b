// Package qqtest provides a scriptable in-process SmartQQ server for tests
// of code built on package qq.
package qqtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/ArkBriar/smartqq/internal/qq"
	qrcode "github.com/skip2/go-qrcode"
)

// Canned QR verify bodies.
const (
	QRWaiting = "ptuiCB('66','0','','0','二维码未失效。(1234)', '');"
	QRExpired = "ptuiCB('65','0','','0','二维码已失效。(1234)', '');"
)

// QRSuccess is the verify body of a scanned code.
func QRSuccess(redirect string) string {
	return "ptuiCB('0','0','" + redirect + "','0','登录成功！', 'me');"
}

// QRContent is the payload encoded in the served QR image.
const QRContent = "https://ptlogin2.qq.com/qrlogin?k=qqtest"

// QRImage returns the PNG served by /ptqrshow, five pixels per module
// like the real one.
func QRImage() ([]byte, error) {
	q, err := qrcode.New(QRContent, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	return q.PNG(5 * len(q.Bitmap()))
}

// Fixed identities served by the fake.
const (
	SelfUin     int64 = 1234
	SelfAccount int64 = 99887766
	SelfNick          = "me"
	Ptwebqq           = "ptw"
	Vfwebqq           = "vf"
	Psessionid        = "ps"
)

// Call is one recorded POST.
type Call struct {
	Path    string
	Payload map[string]any
}

// Server fakes the SmartQQ endpoints. The zero value is not usable; call
// NewServer.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	verify   []string
	verified int
	retcodes map[string]int
	calls    []Call
	events   chan json.RawMessage
}

// NewServer starts a fake. Every QR verify succeeds unless scripted
// otherwise. Close it when done.
func NewServer() *Server {
	s := &Server{
		retcodes: make(map[string]int),
		events:   make(chan json.RawMessage, 64),
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

// Endpoints returns the production table rebased onto the fake.
func (s *Server) Endpoints() *qq.Endpoints {
	eps := qq.DefaultEndpoints().Rebase(s.URL)
	return &eps
}

// ScriptVerify sets the bodies returned by successive QR verify calls.
// The last body repeats.
func (s *Server) ScriptVerify(bodies ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verify, s.verified = bodies, 0
}

// FailWith makes the endpoint at path answer with the given retcode.
// Zero clears it.
func (s *Server) FailWith(path string, retcode int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if retcode == 0 {
		delete(s.retcodes, path)
		return
	}
	s.retcodes[path] = retcode
}

// Push queues a poll event delivered by the next poll call.
func (s *Server) Push(pollType string, value any) {
	data, err := json.Marshal(map[string]any{"poll_type": pollType, "value": value})
	if err != nil {
		panic(err)
	}
	s.events <- data
}

// PushText queues a message event of pollType whose content is text.
func (s *Server) PushText(pollType string, msgID, from int64, text string) {
	value := map[string]any{
		"msg_id":   msgID,
		"from_uin": from,
		"to_uin":   SelfUin,
		"time":     1700000000,
		"content":  []any{[]any{"font", qq.DefaultFont}, text},
	}
	switch pollType {
	case qq.PollTypeGroupMessage:
		value["group_code"] = from + 1000
		value["send_uin"] = 10
	case qq.PollTypeDiscussMessage:
		value["did"] = from
		value["send_uin"] = 10
	}
	s.Push(pollType, value)
}

// Calls returns the recorded POST calls to path, or all when path is
// empty.
func (s *Server) Calls(path string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if path == "" || c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ptqrshow", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "qrsig", Value: "sig"})
		png, err := QRImage()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	})
	mux.HandleFunc("/ptqrlogin", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		body := QRSuccess(s.URL + "/redir")
		if len(s.verify) > 0 {
			body = s.verify[min(s.verified, len(s.verify)-1)]
		}
		s.verified++
		s.mu.Unlock()
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/redir", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "ptwebqq", Value: Ptwebqq})
		http.Redirect(w, r, "/proxy.html", http.StatusFound)
	})
	mux.HandleFunc("/report/report_vm", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/pingd", func(w http.ResponseWriter, r *http.Request) {})

	s.canned(mux, "/api/getvfwebqq", `{"retcode":0,"result":{"vfwebqq":"`+Vfwebqq+`"}}`)
	s.canned(mux, "/channel/login2", fmt.Sprintf(`{"retcode":0,"result":{"psessionid":"%s","uin":%d,"status":"online"}}`, Psessionid, SelfUin))
	s.canned(mux, "/api/get_self_info2", fmt.Sprintf(`{"retcode":0,"result":{"uin":%d,"account":%d,"nick":"%s"}}`, SelfUin, SelfAccount, SelfNick))
	s.canned(mux, "/channel/send_buddy_msg2", `{"retcode":0,"result":{"msg_id":1}}`)
	s.canned(mux, "/channel/send_qun_msg2", `{"errCode":0,"msg":"send ok"}`)
	s.canned(mux, "/channel/send_discu_msg2", `{"errCode":0,"msg":"send ok"}`)
	s.canned(mux, "/api/get_user_friends2", `{"retcode":0,"result":{
		"friends":[{"flag":0,"uin":10,"categories":0},{"flag":4,"uin":20,"categories":1}],
		"marknames":[{"uin":20,"markname":"bobby","type":0}],
		"categories":[{"index":1,"sort":1,"name":"work"}],
		"vipinfo":[],
		"info":[{"face":0,"flag":0,"nick":"alice","uin":10},{"face":0,"flag":0,"nick":"bob","uin":20}]}}`)
	s.canned(mux, "/api/get_group_name_list_mask2", `{"retcode":0,"result":{"gmasklist":[],"gnamelist":[{"flag":1,"name":"book club","gid":5,"code":555}],"gmarklist":[]}}`)
	s.canned(mux, "/api/get_discus_list", `{"retcode":0,"result":{"dnamelist":[{"name":"trip","did":7}]}}`)
	s.canned(mux, "/channel/get_recent_list2", `{"retcode":0,"result":[{"type":0,"uin":10},{"type":1,"uin":5}]}`)
	s.canned(mux, "/channel/get_online_buddies2", `{"retcode":0,"result":[{"client_type":1,"status":"online","uin":10}]}`)
	s.canned(mux, "/api/get_friend_info2", `{"retcode":0,"result":{"uin":10,"nick":"alice","gender":"female"}}`)
	s.canned(mux, "/api/get_friend_uin2", `{"retcode":0,"result":{"uiuin":"","account":10010,"uin":10}}`)
	s.canned(mux, "/api/get_group_info_ext2", `{"retcode":0,"result":{
		"ginfo":{"gid":5,"code":555,"name":"book club","owner":10},
		"minfo":[{"uin":10,"nick":"alice"}],"stats":[],"vipinfo":[]}}`)
	s.canned(mux, "/channel/get_discu_info", `{"retcode":0,"result":{
		"info":{"did":7,"discu_name":"trip"},"mem_info":[{"uin":10,"nick":"alice"}],"mem_status":[]}}`)

	mux.HandleFunc("/channel/poll2", func(w http.ResponseWriter, r *http.Request) {
		s.record(r)
		if code, ok := s.retcode(r.URL.Path); ok {
			writeJSON(w, fmt.Sprintf(`{"retcode":%d}`, code))
			return
		}
		var items []json.RawMessage
		select {
		case evt := <-s.events:
			items = append(items, evt)
		case <-r.Context().Done():
			return
		case <-time.After(50 * time.Millisecond):
			writeJSON(w, `{"retcode":0,"errmsg":"error!!!"}`)
			return
		}
	drain:
		for {
			select {
			case evt := <-s.events:
				items = append(items, evt)
			default:
				break drain
			}
		}
		data, _ := json.Marshal(map[string]any{"retcode": 0, "result": items})
		writeJSON(w, string(data))
	})
	return mux
}

// canned registers a handler answering body, or a forced retcode.
func (s *Server) canned(mux *http.ServeMux, path, body string) {
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			s.record(r)
		}
		if code, ok := s.retcode(path); ok {
			writeJSON(w, fmt.Sprintf(`{"retcode":%d}`, code))
			return
		}
		writeJSON(w, body)
	})
}

func (s *Server) retcode(path string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.retcodes[path]
	return code, ok
}

func (s *Server) record(r *http.Request) {
	if err := r.ParseForm(); err != nil {
		return
	}
	var payload map[string]any
	_ = json.Unmarshal([]byte(r.PostForm.Get("r")), &payload)
	s.mu.Lock()
	s.calls = append(s.calls, Call{Path: r.URL.Path, Payload: payload})
	s.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprint(w, body)
}
