package forum

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bbsbot/internal/shared/types"
)

const homeWithLinks = `<html><body>
<a href="forum.php">论坛</a>
<a class="midaben_signpanel JD_sign" href="plugin.php?id=k_misign:sign&operation=qiandao">签到</a>
<a href="member.php?mod=logging&amp;action=logout&amp;formhash=a1b2c3d4">退出登录</a>
</body></html>`

const homeLoggedOut = `<html><body><a href="member.php?mod=logging&action=login">登录</a></body></html>`

// fakeForum records form posts and serves a configurable home page.
type fakeForum struct {
	mu        sync.Mutex
	home      string
	forms     map[string]url.Values
	paths     []string
	cookies   []string
	loginCode int
	replyBody string
	bumpCode  int
}

func newFakeForum(t *testing.T) (*fakeForum, *Session) {
	t.Helper()
	f := &fakeForum{home: homeWithLinks, forms: map[string]url.Values{}, loginCode: http.StatusOK, bumpCode: http.StatusOK}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)

	s, err := NewSession(types.ForumConf{BaseURL: srv.URL + "/", UserAgent: "test-agent/1.0"})
	require.NoError(t, err)
	return f, s
}

func (f *fakeForum) update(fn func(f *fakeForum)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeForum) form(name string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forms[name]
}

func (f *fakeForum) seen() (paths, cookies []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...), append([]string(nil), f.cookies...)
}

func (f *fakeForum) serve(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.URL.Path)
	if c, err := r.Cookie("auth"); err == nil {
		f.cookies = append(f.cookies, c.Value)
	}

	switch {
	case r.URL.Path == "/member.php":
		f.forms["login"] = r.PostForm
		http.SetCookie(w, &http.Cookie{Name: "auth", Value: "token-1", Path: "/"})
		w.WriteHeader(f.loginCode)
	case r.URL.Path == "/home.php" && r.URL.Query().Get("mod") == "magic":
		f.forms["bump"] = r.PostForm
		w.WriteHeader(f.bumpCode)
	case r.URL.Path == "/forum.php" && r.URL.Query().Get("action") == "reply":
		f.forms["reply"] = r.PostForm
		_, _ = w.Write([]byte(f.replyBody))
	case r.URL.Path == "/plugin.php":
		_, _ = w.Write([]byte("ok"))
	default:
		_, _ = w.Write([]byte(f.home))
	}
}

func TestSession_LoginKeepsCookies(t *testing.T) {
	f, s := newFakeForum(t)

	require.NoError(t, s.Login(context.Background(), "alice", "secret"))
	assert.Equal(t, "alice", f.form("login").Get("username"))
	assert.Equal(t, "secret", f.form("login").Get("password"))

	_, _, err := s.Get(context.Background(), "/")
	require.NoError(t, err)
	_, cookies := f.seen()
	assert.Contains(t, cookies, "token-1", "login cookie is replayed on later requests")
}

func TestSession_LoginNon200(t *testing.T) {
	f, s := newFakeForum(t)
	f.update(func(f *fakeForum) { f.loginCode = http.StatusForbidden })

	err := s.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrLoginFailed)
}

func TestSession_FormHash(t *testing.T) {
	f, s := newFakeForum(t)

	hash, err := s.FormHash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3d4", hash)

	f.update(func(f *fakeForum) { f.home = homeLoggedOut })
	_, err = s.FormHash(context.Background())
	assert.ErrorIs(t, err, ErrFormHashNotFound)
}

func TestTasks_DailySignIn(t *testing.T) {
	f, s := newFakeForum(t)
	tasks := NewTasks(s)

	signed, err := tasks.DailySignIn(context.Background())
	require.NoError(t, err)
	assert.True(t, signed)
	paths, _ := f.seen()
	assert.Contains(t, paths, "/plugin.php")

	f.update(func(f *fakeForum) { f.home = homeLoggedOut })
	signed, err = tasks.DailySignIn(context.Background())
	require.NoError(t, err)
	assert.False(t, signed, "no sign-in link means nothing to do")
}

func TestTasks_BumpThread(t *testing.T) {
	f, s := newFakeForum(t)
	tasks := NewTasks(s)

	require.NoError(t, tasks.BumpThread(context.Background(), "12345", "a1b2c3d4"))
	form := f.form("bump")
	assert.Equal(t, "a1b2c3d4", form.Get("formhash"))
	assert.Equal(t, "10", form.Get("magicid"))
	assert.Equal(t, "12345", form.Get("tid"))
	assert.Equal(t, "12345", form.Get("id"))
	assert.Equal(t, "tid", form.Get("idtype"))

	f.update(func(f *fakeForum) { f.bumpCode = http.StatusInternalServerError })
	assert.Error(t, tasks.BumpThread(context.Background(), "12345", "a1b2c3d4"))

	assert.ErrorIs(t, tasks.BumpThread(context.Background(), "12345", ""), ErrMissingFormHash)
}

func TestTasks_ReplyThread(t *testing.T) {
	f, s := newFakeForum(t)
	tasks := NewTasks(s)

	f.update(func(f *fakeForum) { f.replyBody = `<root><![CDATA[succeedhandle_fastpost('forum.php', '回复发布成功')]]></root>` })
	require.NoError(t, tasks.ReplyThread(context.Background(), "12345", "a1b2c3d4", "每日一顶"))
	assert.Equal(t, "每日一顶", f.form("reply").Get("message"))
	assert.Equal(t, "a1b2c3d4", f.form("reply").Get("formhash"))

	f.update(func(f *fakeForum) { f.replyBody = `<root><![CDATA[errorhandle_fastpost('抱歉，您两次发表间隔少于 15 秒')]]></root>` })
	assert.Error(t, tasks.ReplyThread(context.Background(), "12345", "a1b2c3d4", "again"))

	assert.ErrorIs(t, tasks.ReplyThread(context.Background(), "12345", "", "x"), ErrMissingFormHash)
}
