package qq

import (
	"strconv"
	"strings"
)

// ClientID is the fixed client identifier the web client reports on every
// session-bound call.
const ClientID int64 = 53999199

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_11_2) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/47.0.2526.106 Safari/537.36"

const (
	refererPtlogin = "https://ui.ptlogin2.qq.com/cgi-bin/login?daid=164&target=self&style=16&mibao_css=m_webqq&appid=501004106&enable_qlogin=0&no_verifyimg=1&s_url=http%3A%2F%2Fw.qq.com%2Fproxy.html&f_url=loginerroralert&strong_login=1&login_state=10&t=20131024001"
	refererS       = "http://s.web2.qq.com/proxy.html?v=20130916001&callback=1&id=1"
	refererD       = "http://d1.web2.qq.com/proxy.html?v=20151105001&callback=1&id=2"
	refererW       = "http://w.qq.com/"
	originS        = "http://s.web2.qq.com"
	originD        = "http://d1.web2.qq.com"
)

// Endpoint is one remote API URL template with its protocol headers.
// Positional parameters are written as {1}, {2}, ... in URL.
type Endpoint struct {
	URL     string
	Referer string
	Origin  string
}

// Build substitutes params into the URL template in a single pass, so a
// value that looks like a placeholder is left as is.
func (e Endpoint) Build(params ...string) string {
	if len(params) == 0 {
		return e.URL
	}
	pairs := make([]string, 0, 2*len(params))
	for i, p := range params {
		pairs = append(pairs, "{"+strconv.Itoa(i+1)+"}", p)
	}
	return strings.NewReplacer(pairs...).Replace(e.URL)
}

// Endpoints is the full table of remote calls used by the client.
type Endpoints struct {
	QRCode       Endpoint
	VerifyQRCode Endpoint
	Ptwebqq      Endpoint
	Report       Endpoint
	Vfwebqq      Endpoint
	Ping         Endpoint
	Login2       Endpoint

	Poll          Endpoint
	SendToFriend  Endpoint
	SendToGroup   Endpoint
	SendToDiscuss Endpoint

	GroupList    Endpoint
	FriendList   Endpoint
	DiscussList  Endpoint
	RecentList   Endpoint
	AccountInfo  Endpoint
	FriendInfo   Endpoint
	QQByID       Endpoint
	FriendStatus Endpoint
	GroupInfo    Endpoint
	DiscussInfo  Endpoint
}

// DefaultEndpoints returns the production endpoint table.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		QRCode: Endpoint{
			URL: "https://ssl.ptlogin2.qq.com/ptqrshow?appid=501004106&e=0&l=M&s=5&d=72&v=4&t=0.1",
		},
		VerifyQRCode: Endpoint{
			URL:     "https://ssl.ptlogin2.qq.com/ptqrlogin?ptqrtoken={1}&webqq_type=10&remember_uin=1&login2qq=1&aid=501004106&u1=http%3A%2F%2Fw.qq.com%2Fproxy.html%3Flogin2qq%3D1%26webqq_type%3D10&ptredirect=0&ptlang=2052&daid=164&from_ui=1&pttype=1&dumy=&fp=loginerroralert&action=0-0-157510&mibao_css=m_webqq&t=1&g=1&js_type=0&js_ver=10143&login_sig=&pt_randsalt=0",
			Referer: refererPtlogin,
		},
		Ptwebqq: Endpoint{
			URL:     "{1}",
			Referer: refererS,
		},
		Report: Endpoint{
			URL:     "http://cgi.connect.qq.com/report/report_vm?tag=0&log=1&t={1}",
			Referer: refererW,
		},
		Vfwebqq: Endpoint{
			URL:     "http://s.web2.qq.com/api/getvfwebqq?ptwebqq={1}&clientid=53999199&psessionid=&t={2}",
			Referer: refererS,
		},
		Ping: Endpoint{
			URL:     "http://pinghot.qq.com/pingd?dm=w.qq.com.hot&url=/&hottag=smartqq.im.init&hotx=9999&hoty=9999",
			Referer: refererW,
		},
		Login2: Endpoint{
			URL:     "http://d1.web2.qq.com/channel/login2",
			Referer: refererD,
			Origin:  originD,
		},
		Poll: Endpoint{
			URL:     "http://d1.web2.qq.com/channel/poll2",
			Referer: refererD,
			Origin:  originD,
		},
		SendToFriend: Endpoint{
			URL:     "http://d1.web2.qq.com/channel/send_buddy_msg2",
			Referer: refererD,
			Origin:  originD,
		},
		SendToGroup: Endpoint{
			URL:     "http://d1.web2.qq.com/channel/send_qun_msg2",
			Referer: refererD,
			Origin:  originD,
		},
		SendToDiscuss: Endpoint{
			URL:     "http://d1.web2.qq.com/channel/send_discu_msg2",
			Referer: refererD,
			Origin:  originD,
		},
		GroupList: Endpoint{
			URL:     "http://s.web2.qq.com/api/get_group_name_list_mask2",
			Referer: refererS,
			Origin:  originS,
		},
		FriendList: Endpoint{
			URL:     "http://s.web2.qq.com/api/get_user_friends2",
			Referer: refererS,
			Origin:  originS,
		},
		DiscussList: Endpoint{
			URL:     "http://s.web2.qq.com/api/get_discus_list?clientid=53999199&psessionid={1}&vfwebqq={2}&t=0.1",
			Referer: refererS,
		},
		RecentList: Endpoint{
			URL:     "http://d1.web2.qq.com/channel/get_recent_list2",
			Referer: refererD,
			Origin:  originD,
		},
		AccountInfo: Endpoint{
			URL:     "http://s.web2.qq.com/api/get_self_info2?t={1}",
			Referer: refererS,
		},
		FriendInfo: Endpoint{
			URL:     "http://s.web2.qq.com/api/get_friend_info2?tuin={1}&vfwebqq={2}&clientid=53999199&psessionid={3}&t=0.1",
			Referer: refererS,
		},
		QQByID: Endpoint{
			URL:     "http://s.web2.qq.com/api/get_friend_uin2?tuin={1}&type=1&vfwebqq={2}&t=0.1",
			Referer: refererS,
		},
		FriendStatus: Endpoint{
			URL:     "http://d1.web2.qq.com/channel/get_online_buddies2?vfwebqq={1}&clientid=53999199&psessionid={2}&t=0.1",
			Referer: refererD,
		},
		GroupInfo: Endpoint{
			URL:     "http://s.web2.qq.com/api/get_group_info_ext2?gcode={1}&vfwebqq={2}&t=0.1",
			Referer: refererS,
		},
		DiscussInfo: Endpoint{
			URL:     "http://d1.web2.qq.com/channel/get_discu_info?did={1}&vfwebqq={2}&clientid=53999199&psessionid={3}&t=0.1",
			Referer: refererD,
		},
	}
}

// Rebase returns a copy of the table with every absolute URL moved onto
// base (scheme and host replaced, path and query kept). Templates without a
// host, such as the ptwebqq redirect, are left alone.
func (e Endpoints) Rebase(base string) Endpoints {
	base = strings.TrimRight(base, "/")
	for _, ep := range e.all() {
		ep.URL = rebaseURL(ep.URL, base)
	}
	return e
}

func (e *Endpoints) all() []*Endpoint {
	return []*Endpoint{
		&e.QRCode, &e.VerifyQRCode, &e.Ptwebqq, &e.Report, &e.Vfwebqq, &e.Ping, &e.Login2,
		&e.Poll, &e.SendToFriend, &e.SendToGroup, &e.SendToDiscuss,
		&e.GroupList, &e.FriendList, &e.DiscussList, &e.RecentList, &e.AccountInfo,
		&e.FriendInfo, &e.QQByID, &e.FriendStatus, &e.GroupInfo, &e.DiscussInfo,
	}
}

func rebaseURL(raw, base string) string {
	i := strings.Index(raw, "://")
	if i < 0 {
		return raw
	}
	rest := raw[i+3:]
	j := strings.IndexByte(rest, '/')
	if j < 0 {
		return base
	}
	return base + rest[j:]
}
