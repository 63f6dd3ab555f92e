package main

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Flag variables outlive a single Execute, so every call passes the flags it
// relies on explicitly.
func setupCLI(t *testing.T) func(args ...string) (string, error) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.toml")
	env := filepath.Join(dir, "missing.env")
	return func(args ...string) (string, error) {
		var buf bytes.Buffer
		rootCmd.SetOut(&buf)
		rootCmd.SetErr(&buf)
		rootCmd.SetIn(strings.NewReader(""))
		rootCmd.SetArgs(append([]string{"--config", cfg, "--env", env}, args...))
		err := rootCmd.Execute()
		return buf.String(), err
	}
}

func TestTaskCommands(t *testing.T) {
	run := setupCLI(t)

	out, err := run("add", "--title", "Old essay", "--due", "2020-01-01 10:00", "--subject", "History", "--notes", "", "--emoji", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Task created: 1")
	assert.Contains(t, out, "Status: missed")

	out, err = run("add", "--title", "Read ch.3", "--due", "", "--subject", "", "--notes", "", "--emoji", "📖")
	require.NoError(t, err)
	assert.Contains(t, out, "Task created: 2")
	assert.Contains(t, out, "No Due Date")

	out, err = run("list", "--filter", "missed", "--subject", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Old essay")
	assert.NotContains(t, out, "Read ch.3")

	out, err = run("list", "--filter", "ongoing", "--subject", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Read ch.3")
	assert.NotContains(t, out, "Old essay")

	out, err = run("done", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Task 1 completed")

	out, err = run("list", "--filter", "completed", "--subject", "History")
	require.NoError(t, err)
	assert.Contains(t, out, "Old essay")
	assert.Contains(t, out, "#History")

	out, err = run("list", "--filter", "missed", "--subject", "")
	require.NoError(t, err)
	assert.Contains(t, out, "No tasks found.")

	out, err = run("show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: completed")

	_, err = run("rm", "99")
	assert.EqualError(t, err, "task 99 not found")

	_, err = run("rm", "abc")
	assert.Error(t, err)

	out, err = run("rm", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Task 2 deleted")
}

func TestAddRejectsBlankTitle(t *testing.T) {
	run := setupCLI(t)
	_, err := run("add", "--title", "  ", "--due", "", "--subject", "", "--notes", "", "--emoji", "")
	assert.EqualError(t, err, "title cannot be empty")
}

func TestSubjectCommands(t *testing.T) {
	run := setupCLI(t)

	_, err := run("subject", "add", "Math", "--emoji", "📐")
	require.NoError(t, err)
	_, err = run("subject", "add", "Math", "--emoji", "📐")
	assert.EqualError(t, err, `subject "Math" already exists`)

	_, err = run("add", "--title", "Worksheet", "--due", "", "--subject", "Math", "--notes", "", "--emoji", "")
	require.NoError(t, err)

	out, err := run("subject", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Math  (1 open / 1)")

	_, err = run("subject", "rename", "Math", "Calculus")
	require.NoError(t, err)
	out, err = run("list", "--filter", "all", "--subject", "Calculus")
	require.NoError(t, err)
	assert.Contains(t, out, "Worksheet")

	_, err = run("subject", "rm", "Calculus")
	require.NoError(t, err)
	_, err = run("subject", "rm", "Calculus")
	assert.EqualError(t, err, `subject "Calculus" not found`)
}

func TestListSubjectKeepsFilterOrder(t *testing.T) {
	run := setupCLI(t)
	for _, due := range []string{"2020-01-01 10:00", "2021-06-01 10:00"} {
		_, err := run("add", "--title", "essay "+due[:4], "--due", due, "--subject", "History", "--notes", "", "--emoji", "")
		require.NoError(t, err)
	}

	for _, subject := range []string{"", "History"} {
		out, err := run("list", "--filter", "missed", "--subject", subject)
		require.NoError(t, err)
		newer, older := strings.Index(out, "essay 2021"), strings.Index(out, "essay 2020")
		require.True(t, newer >= 0 && older >= 0, out)
		assert.Less(t, newer, older, "subject %q", subject)
	}
}

var sentCode = regexp.MustCompile(`<strong>(\d{6})</strong>`)

func TestAccountCommands(t *testing.T) {
	run := setupCLI(t)
	var mailLog bytes.Buffer
	log.SetOutput(&mailLog)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	out, err := run("signup", "--email", "Ada@Example.edu", "--name", "Ada", "--password", "longenough")
	require.NoError(t, err)
	assert.Contains(t, out, "Account created for ada@example.edu")
	m := sentCode.FindStringSubmatch(mailLog.String())
	require.Len(t, m, 2, mailLog.String())
	code := m[1]

	_, err = run("login", "--email", "ada@example.edu", "--password", "longenough")
	assert.ErrorContains(t, err, "email not verified")

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = run("verify", "--email", "ada@example.edu", "--code", wrong)
	assert.EqualError(t, err, "code invalid")

	out, err = run("verify", "--email", "ada@example.edu", "--code", code)
	require.NoError(t, err)
	assert.Contains(t, out, "Email verified")

	out, err = run("login", "--email", "ada@example.edu", "--password", "longenough")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome back, Ada")

	_, err = run("login", "--email", "ada@example.edu", "--password", "wrongpassword")
	assert.EqualError(t, err, "wrong email or password")

	photo := filepath.Join(t.TempDir(), "me.png")
	require.NoError(t, os.WriteFile(photo, []byte("png-bytes"), 0o644))
	out, err = run("profile", "set", "--email", "ada@example.edu", "--name", "Ada Lovelace", "--photo", photo)
	require.NoError(t, err)
	assert.Contains(t, out, "Profile updated for ada@example.edu")

	out, err = run("profile", "--email", "ada@example.edu")
	require.NoError(t, err)
	assert.Contains(t, out, "Name     : Ada Lovelace")
	assert.Contains(t, out, "Verified : true")
	assert.Contains(t, out, "Photo    : ")

	out, err = run("profile", "rm-photo", "--email", "ada@example.edu")
	require.NoError(t, err)
	assert.Contains(t, out, "Photo removed")

	out, err = run("profile", "--email", "ada@example.edu")
	require.NoError(t, err)
	assert.NotContains(t, out, "Photo    : ")
}
