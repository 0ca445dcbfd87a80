package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureFilename(t *testing.T) {
	cases := map[string]string{
		"My cool movie.mov":                  "My_cool_movie.mov",
		"../../../etc/passwd":                "etc_passwd",
		"i contain cool \u00fcml\u00e4uts.txt": "i_contain_cool_umlauts.txt",
		`C:\Users\me\leaf.png`:              "C_Users_me_leaf.png",
		"  tulsi  leaf .jpg ":                "tulsi_leaf_.jpg",
		"__.hidden.gif":                      "hidden.gif",
		"\u6f22\u5b57.png":                   "png",
		"":                                   "",
	}
	for in, want := range cases {
		assert.Equal(t, want, SecureFilename(in), in)
	}
}

func TestParseArgs(t *testing.T) {
	args := ParseArgs([]string{"--debug", "match", "--image=/tmp/leaf.jpg", "--threshold", "8", "--config", "c.yml"})

	assert.Equal(t, "match", args["command"])
	assert.Equal(t, "true", args["debug"])
	assert.Equal(t, "/tmp/leaf.jpg", args["image"])
	assert.Equal(t, "8", args["threshold"])
	assert.Equal(t, "c.yml", args["config"])

	none := ParseArgs([]string{"--logfile", "x.log"})
	_, hasCommand := none["command"]
	assert.False(t, hasCommand)
	assert.Equal(t, "x.log", none["logfile"])
}

func TestParseThreshold(t *testing.T) {
	v, err := ParseThreshold("12")
	require.NoError(t, err)
	assert.Equal(t, 12, v)

	for _, bad := range []string{"", "abc", "0", "65", "-3"} {
		_, err := ParseThreshold(bad)
		assert.Error(t, err, bad)
	}
}
