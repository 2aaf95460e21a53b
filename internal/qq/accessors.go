package qq

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strconv"
)

func (c *Client) hashPayload() (map[string]any, error) {
	s, err := c.established()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"vfwebqq": s.Vfwebqq,
		"hash":    Hash(s.Uin, s.Ptwebqq),
	}, nil
}

// GroupList returns the groups the account belongs to.
func (c *Client) GroupList(ctx context.Context) ([]Group, error) {
	payload, err := c.hashPayload()
	if err != nil {
		return nil, err
	}
	raw, err := c.post(ctx, c.endpoints.GroupList, payload)
	if err != nil {
		return nil, err
	}
	var result struct {
		Groups []Group `json:"gnamelist"`
	}
	if err := c.decode("get group list", raw, &result); err != nil {
		return nil, err
	}
	return result.Groups, nil
}

// DiscussList returns the discussions the account belongs to.
func (c *Client) DiscussList(ctx context.Context) ([]Discuss, error) {
	s, err := c.established()
	if err != nil {
		return nil, err
	}
	raw, err := c.get(ctx, c.endpoints.DiscussList, s.Psessionid, s.Vfwebqq)
	if err != nil {
		return nil, err
	}
	var result struct {
		Discusses []Discuss `json:"dnamelist"`
	}
	if err := c.decode("get discuss list", raw, &result); err != nil {
		return nil, err
	}
	return result.Discusses, nil
}

type vipEntry struct {
	Uin      int64 `json:"u"`
	IsVIP    int   `json:"is_vip"`
	VIPLevel int   `json:"vip_level"`
}

type friendListResult struct {
	Friends []struct {
		Uin      int64 `json:"uin"`
		Category int   `json:"categories"`
	} `json:"friends"`
	Info []struct {
		Uin  int64  `json:"uin"`
		Nick string `json:"nick"`
	} `json:"info"`
	Marknames []struct {
		Uin      int64  `json:"uin"`
		Markname string `json:"markname"`
	} `json:"marknames"`
	VIPInfo    []vipEntry `json:"vipinfo"`
	Categories []struct {
		Index int    `json:"index"`
		Sort  int    `json:"sort"`
		Name  string `json:"name"`
	} `json:"categories"`
}

// friends joins the info, markname and vip records by uin. Records for uins
// missing from info are dropped.
func (r *friendListResult) friends() map[int64]*Friend {
	byUin := make(map[int64]*Friend, len(r.Info))
	for _, i := range r.Info {
		byUin[i.Uin] = &Friend{Uin: i.Uin, Nickname: i.Nick}
	}
	for _, m := range r.Marknames {
		if f, ok := byUin[m.Uin]; ok {
			f.Markname = m.Markname
		}
	}
	for _, v := range r.VIPInfo {
		if f, ok := byUin[v.Uin]; ok {
			f.VIP = v.IsVIP == 1
			f.VIPLevel = v.VIPLevel
		}
	}
	return byUin
}

func (c *Client) fetchFriends(ctx context.Context) (*friendListResult, error) {
	payload, err := c.hashPayload()
	if err != nil {
		return nil, err
	}
	raw, err := c.post(ctx, c.endpoints.FriendList, payload)
	if err != nil {
		return nil, err
	}
	var result friendListResult
	if err := c.decode("get friend list", raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FriendList returns every buddy ordered by uin.
func (c *Client) FriendList(ctx context.Context) ([]Friend, error) {
	result, err := c.fetchFriends(ctx)
	if err != nil {
		return nil, err
	}
	byUin := result.friends()
	friends := make([]Friend, 0, len(byUin))
	for _, uin := range slices.Sorted(maps.Keys(byUin)) {
		friends = append(friends, *byUin[uin])
	}
	return friends, nil
}

// FriendsByCategory returns the buddy categories ordered by index, each with
// its members. Category 0 is always present.
func (c *Client) FriendsByCategory(ctx context.Context) ([]Category, error) {
	result, err := c.fetchFriends(ctx)
	if err != nil {
		return nil, err
	}
	byUin := result.friends()

	byIndex := map[int]*Category{0: {Index: 0, Name: DefaultCategoryName}}
	for _, cat := range result.Categories {
		if _, ok := byIndex[cat.Index]; ok {
			continue
		}
		byIndex[cat.Index] = &Category{Index: cat.Index, Sort: cat.Sort, Name: cat.Name}
	}
	for _, f := range result.Friends {
		friend, ok := byUin[f.Uin]
		if !ok {
			continue
		}
		cat, ok := byIndex[f.Category]
		if !ok {
			cat = &Category{Index: f.Category}
			byIndex[f.Category] = cat
		}
		cat.Friends = append(cat.Friends, *friend)
	}

	categories := make([]Category, 0, len(byIndex))
	for _, idx := range slices.Sorted(maps.Keys(byIndex)) {
		categories = append(categories, *byIndex[idx])
	}
	return categories, nil
}

// RecentList returns the recent conversations.
func (c *Client) RecentList(ctx context.Context) ([]Recent, error) {
	s, err := c.established()
	if err != nil {
		return nil, err
	}
	raw, err := c.post(ctx, c.endpoints.RecentList, map[string]any{
		"vfwebqq":    s.Vfwebqq,
		"clientid":   ClientID,
		"psessionid": "",
	})
	if err != nil {
		return nil, err
	}
	var recents []Recent
	if err := c.decode("get recent list", raw, &recents); err != nil {
		return nil, err
	}
	return recents, nil
}

// AccountInfo returns the profile of the logged in account.
func (c *Client) AccountInfo(ctx context.Context) (*UserInfo, error) {
	if _, err := c.established(); err != nil {
		return nil, err
	}
	raw, err := c.get(ctx, c.endpoints.AccountInfo, c.timestamp("012"))
	if err != nil {
		return nil, err
	}
	var info UserInfo
	if err := c.decode("get account info", raw, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// FriendInfo returns the profile of a buddy.
func (c *Client) FriendInfo(ctx context.Context, uin int64) (*UserInfo, error) {
	s, err := c.established()
	if err != nil {
		return nil, err
	}
	raw, err := c.get(ctx, c.endpoints.FriendInfo, strconv.FormatInt(uin, 10), s.Vfwebqq, s.Psessionid)
	if err != nil {
		return nil, err
	}
	var info UserInfo
	if err := c.decode("get friend info", raw, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// QQByID resolves a session uin to the account number.
func (c *Client) QQByID(ctx context.Context, uin int64) (int64, error) {
	s, err := c.established()
	if err != nil {
		return 0, err
	}
	raw, err := c.get(ctx, c.endpoints.QQByID, strconv.FormatInt(uin, 10), s.Vfwebqq)
	if err != nil {
		return 0, err
	}
	var result struct {
		Account int64 `json:"account"`
	}
	if err := c.decode("get qq by id", raw, &result); err != nil {
		return 0, err
	}
	return result.Account, nil
}

// FriendStatus returns the presence of the buddies currently online.
func (c *Client) FriendStatus(ctx context.Context) ([]FriendStatus, error) {
	s, err := c.established()
	if err != nil {
		return nil, err
	}
	raw, err := c.get(ctx, c.endpoints.FriendStatus, s.Vfwebqq, s.Psessionid)
	if err != nil {
		return nil, err
	}
	var statuses []FriendStatus
	if err := c.decode("get friend status", raw, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

type groupInfoResult struct {
	Info    GroupInfo `json:"ginfo"`
	Members []struct {
		Uin      int64  `json:"uin"`
		Nick     string `json:"nick"`
		Province string `json:"province"`
		Gender   string `json:"gender"`
		Country  string `json:"country"`
		City     string `json:"city"`
	} `json:"minfo"`
	Stats []struct {
		Uin        int64 `json:"uin"`
		ClientType int   `json:"client_type"`
		Stat       int   `json:"stat"`
	} `json:"stats"`
	Cards []struct {
		Uin  int64  `json:"muin"`
		Card string `json:"card"`
	} `json:"cards"`
	VIPInfo []vipEntry `json:"vipinfo"`
}

// GroupInfo returns a group with its members, ordered by uin. Name cards are
// optional in the response; members without one get an empty Card.
func (c *Client) GroupInfo(ctx context.Context, code int64) (*GroupInfo, error) {
	s, err := c.established()
	if err != nil {
		return nil, err
	}
	raw, err := c.get(ctx, c.endpoints.GroupInfo, strconv.FormatInt(code, 10), s.Vfwebqq)
	if err != nil {
		return nil, err
	}
	var result groupInfoResult
	if err := c.decode("get group info", raw, &result); err != nil {
		return nil, err
	}

	users := make(map[int64]*GroupUser, len(result.Members))
	for _, m := range result.Members {
		users[m.Uin] = &GroupUser{
			Uin:      m.Uin,
			Nick:     m.Nick,
			Province: m.Province,
			Gender:   m.Gender,
			Country:  m.Country,
			City:     m.City,
		}
	}
	for _, st := range result.Stats {
		if u, ok := users[st.Uin]; ok {
			u.ClientType = st.ClientType
			u.Status = st.Stat
		}
	}
	for _, card := range result.Cards {
		if u, ok := users[card.Uin]; ok {
			u.Card = card.Card
		}
	}
	for _, v := range result.VIPInfo {
		if u, ok := users[v.Uin]; ok {
			u.VIP = v.IsVIP == 1
			u.VIPLevel = v.VIPLevel
		}
	}

	info := result.Info
	info.Users = make([]GroupUser, 0, len(users))
	for _, u := range users {
		info.Users = append(info.Users, *u)
	}
	slices.SortFunc(info.Users, func(a, b GroupUser) int { return cmp.Compare(a.Uin, b.Uin) })
	return &info, nil
}

// DiscussInfo returns a discussion with its members, ordered by uin.
func (c *Client) DiscussInfo(ctx context.Context, did int64) (*DiscussInfo, error) {
	s, err := c.established()
	if err != nil {
		return nil, err
	}
	raw, err := c.get(ctx, c.endpoints.DiscussInfo, strconv.FormatInt(did, 10), s.Vfwebqq, s.Psessionid)
	if err != nil {
		return nil, err
	}
	var result struct {
		Info    DiscussInfo `json:"info"`
		Members []struct {
			Uin  int64  `json:"uin"`
			Nick string `json:"nick"`
		} `json:"mem_info"`
		Status []struct {
			Uin        int64  `json:"uin"`
			ClientType int    `json:"client_type"`
			Status     string `json:"status"`
		} `json:"mem_status"`
	}
	if err := c.decode("get discuss info", raw, &result); err != nil {
		return nil, err
	}

	users := make(map[int64]*DiscussUser, len(result.Members))
	for _, m := range result.Members {
		users[m.Uin] = &DiscussUser{Uin: m.Uin, Nick: m.Nick}
	}
	for _, st := range result.Status {
		if u, ok := users[st.Uin]; ok {
			u.ClientType = st.ClientType
			u.Status = st.Status
		}
	}

	info := result.Info
	info.Users = make([]DiscussUser, 0, len(users))
	for _, uin := range slices.Sorted(maps.Keys(users)) {
		info.Users = append(info.Users, *users[uin])
	}
	return &info, nil
}
