package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompileAndRun(t *testing.T) {
	prog, err := Compile(`Event == "new_message" && Sender.AgeGroup == "0-1"`)
	if err != nil {
		t.Fatalf("error: %s", err)
	}
	env := Env{
		Event:  "new_message",
		RoomId: 1,
		Sender: Sender{Username: "Emma L.", AgeGroup: "0-1", Initials: "EL", AvatarColor: "purple"},
	}
	assert.True(t, Run(prog, env))

	env.Sender.AgeGroup = "2-5"
	assert.False(t, Run(prog, env))

	env.Event = "room_info"
	assert.False(t, Run(prog, env))
}

func TestCompileInvalid(t *testing.T) {
	_, err := Compile(`Sender.Username ===`)
	assert.Error(t, err)

	// unknown properties are rejected at compile time
	_, err = Compile(`Sender.Nick == "x"`)
	assert.Error(t, err)
}

func TestRunNilProgram(t *testing.T) {
	assert.True(t, Run(nil, Env{Event: "new_message"}))
}

func TestRunNonBool(t *testing.T) {
	prog, err := Compile(`RoomId + 1`)
	if err != nil {
		t.Fatalf("error: %s", err)
	}
	assert.False(t, Run(prog, Env{RoomId: 1}))
}
