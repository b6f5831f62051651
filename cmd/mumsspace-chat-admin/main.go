package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/mumsspace/mumsspace-chat/config"
	"github.com/mumsspace/mumsspace-chat/globals"
	"github.com/mumsspace/mumsspace-chat/persistence"
	"github.com/mumsspace/mumsspace-chat/registry"
	"github.com/mumsspace/mumsspace-chat/store"
	"github.com/mumsspace/mumsspace-chat/types"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// A very simple CLI tool for the administration of mumsspace-chat rooms, users
// and moderation reports.

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
)

func main() {
	log.SetFlags(0)

	_ = godotenv.Load()

	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)

	pflag.Parse()

	globalConfig, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		panic(err)
	}

	globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))

	persister, err := persistence.NewPersister(globalConfig)
	if err != nil {
		panic(err)
	}
	if persister == nil {
		panic("no persistence configured")
	}
	defer persister.Close()

	printJSON := func(v interface{}) {
		out, err := json.Marshal(v)
		if err != nil {
			globals.AppLogger.Error("could not marshal", "error", err)
			return
		}
		fmt.Println(string(out))
	}

	var cmdShow = &cobra.Command{
		Use:   "show",
		Short: "Show rooms, users, messages or reports",
		Long:  `show is for printing the stored chat tables.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Show: " + strings.Join(args, " "))
		},
	}
	var cmdShowRooms = &cobra.Command{
		Use:   "rooms",
		Short: "Show rooms",
		Long:  `show rooms lists all stored rooms, public and private.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			rooms, err := persister.GetRooms()
			if err != nil {
				globals.AppLogger.Error("could not get rooms", "error", err)
				return
			}
			printJSON(rooms)
		},
	}
	var cmdShowUsers = &cobra.Command{
		Use:   "users",
		Short: "Show users",
		Long:  `show users lists the user directory.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			users, err := persister.GetUsers()
			if err != nil {
				globals.AppLogger.Error("could not get users", "error", err)
				return
			}
			printJSON(users)
		},
	}
	var cmdShowMessages = &cobra.Command{
		Use:   "messages [room id]",
		Short: "Show messages",
		Long:  `show messages lists stored messages, optionally only those of one room.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			messages, err := persister.GetMessages()
			if err != nil {
				globals.AppLogger.Error("could not get messages", "error", err)
				return
			}
			if len(args) > 0 {
				roomId, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					globals.AppLogger.Error("invalid room id", "error", err)
					return
				}
				filtered := make([]*types.MessageWithUser, 0, len(messages))
				for _, message := range messages {
					if message.RoomId == roomId {
						filtered = append(filtered, message)
					}
				}
				messages = filtered
			}
			printJSON(messages)
		},
	}
	var cmdShowReports = &cobra.Command{
		Use:   "reports",
		Short: "Show moderation reports",
		Long:  `show reports lists all reports filed against users.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			reports, err := persister.GetReports()
			if err != nil {
				globals.AppLogger.Error("could not get reports", "error", err)
				return
			}
			printJSON(reports)
		},
	}
	var cmdSet = &cobra.Command{
		Use:   "set",
		Short: "create/update room or user",
		Long:  `set creates or updates a room or user.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Set: " + strings.Join(args, " "))
		},
	}
	var cmdSetRoom = &cobra.Command{
		Use:   "room [room definition]",
		Short: "Set room",
		Long:  `set room creates or updates a room. If the room definition is "-", the definition is read from STDIN.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var r io.Reader
			if args[0] == "-" {
				r = os.Stdin
			} else {
				r = bytes.NewReader([]byte(args[0]))
			}
			dec := json.NewDecoder(r)
			room := types.Room{}
			err := dec.Decode(&room)
			if err != nil {
				globals.AppLogger.Error("could not decode room", "error", err)
				return
			}
			globals.AppLogger.Info("got room", "room", room)
			if room.Id == 0 {
				globals.AppLogger.Error("no room id")
				return
			}
			err = persister.StoreRoom(room)
			if err != nil {
				globals.AppLogger.Error("could not store room", "error", err)
				return
			}
		},
	}
	var cmdSetUser = &cobra.Command{
		Use:   "user [user definition]",
		Short: "Set user",
		Long:  `set user creates or updates a user with the given definition. If the user definition is "-", it is read from STDIN.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var r io.Reader
			if args[0] == "-" {
				r = os.Stdin
			} else {
				r = bytes.NewReader([]byte(args[0]))
			}
			dec := json.NewDecoder(r)
			user := types.User{}
			err := dec.Decode(&user)
			if err != nil {
				globals.AppLogger.Error("could not decode user", "error", err)
				return
			}
			globals.AppLogger.Info("got user", "user", user)
			if user.Id == 0 {
				globals.AppLogger.Error("no user id")
				return
			}
			err = persister.StoreUser(user)
			if err != nil {
				globals.AppLogger.Error("could not store user", "error", err)
				return
			}
		},
	}
	var cmdSeed = &cobra.Command{
		Use:   "seed",
		Short: "Seed demo data",
		Long:  `seed creates the default public rooms plus a handful of demo users and messages.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			if err := seedDemoData(persister); err != nil {
				globals.AppLogger.Error("could not seed demo data", "error", err)
			}
		},
	}
	var rootCmd = &cobra.Command{Use: "mumsspace-chat-admin"}
	rootCmd.AddCommand(cmdShow)
	rootCmd.AddCommand(cmdSet)
	rootCmd.AddCommand(cmdSeed)
	cmdShow.AddCommand(cmdShowRooms, cmdShowUsers, cmdShowMessages, cmdShowReports)
	cmdSet.AddCommand(cmdSetRoom, cmdSetUser)
	rootCmd.Execute()
}

var demoUsers = []struct {
	username, ageGroup, initials, avatarColor string
}{
	{"Sarah M.", "mums-to-be", "SM", "pink"},
	{"Emma L.", "0-1", "EL", "purple"},
	{"Jessica K.", "2-5", "JK", "green"},
}

var demoMessages = []struct {
	username, ageGroup, content string
}{
	{"Sarah M.", "mums-to-be", "Hi everyone! 28 weeks today and the kicks are getting stronger."},
	{"Emma L.", "0-1", "Any tips for the 4 month sleep regression? We are all exhausted."},
	{"Jessica K.", "2-5", "Potty training week two. Send patience."},
}

// seedDemoData fills an empty database with the default rooms, a few users and
// one starter message per room.
func seedDemoData(persister persistence.Persister) error {
	reg, err := registry.New(persister)
	if err != nil {
		return err
	}
	if err := reg.SeedDefaultRooms(); err != nil {
		return err
	}
	for _, seed := range demoUsers {
		if _, err := reg.GetUserByUsername(seed.username); err == nil {
			continue
		}
		if _, err := reg.CreateUser(seed.username, seed.ageGroup, seed.initials, seed.avatarColor); err != nil {
			return err
		}
	}
	messageStore, err := store.New(persister, reg)
	if err != nil {
		return err
	}
	roomByAgeGroup := make(map[string]int64)
	for _, room := range reg.ListRooms() {
		roomByAgeGroup[room.AgeGroup] = room.Id
	}
	for _, seed := range demoMessages {
		roomId, ok := roomByAgeGroup[seed.ageGroup]
		if !ok {
			continue
		}
		if len(messageStore.History(roomId, 0)) > 0 {
			continue
		}
		user, err := reg.GetUserByUsername(seed.username)
		if err != nil {
			return err
		}
		if _, err := messageStore.Append(roomId, user.Id, seed.content); err != nil {
			return err
		}
	}
	globals.AppLogger.Info("demo data seeded")
	return nil
}
