package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/propdb/cmd/util"
	"github.com/ValentinKolb/propdb/rpc/client"
	"github.com/spf13/cobra"
)

// withDatabase wraps a command body that needs the database selected with --db
func withDatabase(fn func(d *client.RPCDatabase, args []string) error) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		d, err := database()
		if err != nil {
			return err
		}
		return fn(d, args)
	}
}

var (
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: withDatabase(func(d *client.RPCDatabase, args []string) error {
			key := args[0]
			v, ok, err := d.Get(key)
			if err != nil {
				return err
			}
			text, _ := v.MarshalJSON()
			fmt.Printf("key=%s, found=%v, value=%s\n", key, ok, text)
			return nil
		}),
	}
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Long:  "Sets the value for a key. The value is interpreted according to --type: string (default), number, bool, vector (x,y,z) or json.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("type")
			v, err := util.ParseValueArg(kind, args[1])
			if err != nil {
				return err
			}
			d, err := database()
			if err != nil {
				return err
			}
			if err := d.Set(args[0], v); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: withDatabase(func(d *client.RPCDatabase, args []string) error {
			removed, err := d.Delete(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, removed=%t\n", args[0], removed)
			return nil
		}),
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: withDatabase(func(d *client.RPCDatabase, args []string) error {
			found, err := d.Has(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%t\n", args[0], found)
			return nil
		}),
	}
	allCmd = &cobra.Command{
		Use:   "all",
		Short: "Prints all entries in insertion order",
		Args:  cobra.NoArgs,
		RunE: withDatabase(func(d *client.RPCDatabase, _ []string) error {
			entries, err := d.Entries()
			if err != nil {
				return err
			}
			for _, e := range entries {
				text, _ := e.Value.MarshalJSON()
				fmt.Printf("%s=%s\n", e.Key, text)
			}
			return nil
		}),
	}
	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Prints all keys in insertion order",
		Args:  cobra.NoArgs,
		RunE: withDatabase(func(d *client.RPCDatabase, _ []string) error {
			keys, err := d.Keys()
			if err != nil {
				return err
			}
			fmt.Println(strings.Join(keys, "\n"))
			return nil
		}),
	}
	valuesCmd = &cobra.Command{
		Use:   "values",
		Short: "Prints all values in insertion order",
		Args:  cobra.NoArgs,
		RunE: withDatabase(func(d *client.RPCDatabase, _ []string) error {
			values, err := d.Values()
			if err != nil {
				return err
			}
			for _, v := range values {
				text, _ := v.MarshalJSON()
				fmt.Println(string(text))
			}
			return nil
		}),
	}
	sizeCmd = &cobra.Command{
		Use:   "size",
		Short: "Prints the number of entries",
		Args:  cobra.NoArgs,
		RunE: withDatabase(func(d *client.RPCDatabase, _ []string) error {
			n, err := d.Size()
			if err != nil {
				return err
			}
			fmt.Printf("size=%d\n", n)
			return nil
		}),
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Removes all entries (persisted on the next flush)",
		Args:  cobra.NoArgs,
		RunE: withDatabase(func(d *client.RPCDatabase, _ []string) error {
			n, err := d.Clear()
			if err != nil {
				return err
			}
			fmt.Printf("removed=%d\n", n)
			return nil
		}),
	}
	flushCmd = &cobra.Command{
		Use:   "flush",
		Short: "Writes the database to the property store",
		Args:  cobra.NoArgs,
		RunE: withDatabase(func(d *client.RPCDatabase, _ []string) error {
			if err := d.Flush(); err != nil {
				return err
			}
			fmt.Println("flushed successfully")
			return nil
		}),
	}
	printCmd = &cobra.Command{
		Use:   "print [recipient]",
		Short: "Prints the human readable dump of the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: withDatabase(func(d *client.RPCDatabase, args []string) error {
			recipient := ""
			if len(args) == 1 {
				recipient = args[0]
			}
			lines, err := d.Print(recipient)
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Println(line)
			}
			return nil
		}),
	}
	evictCmd = &cobra.Command{
		Use:   "evict",
		Short: "Flushes the database and unloads it from the server",
		Args:  cobra.NoArgs,
		RunE: withDatabase(func(d *client.RPCDatabase, _ []string) error {
			evicted, err := d.Evict()
			if err != nil {
				return err
			}
			fmt.Printf("database=%s, evicted=%t\n", d.Name(), evicted)
			return nil
		}),
	}
	saveAllCmd = &cobra.Command{
		Use:   "saveall",
		Short: "Writes every loaded database to the property store",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			n, err := registry.SaveAll()
			if err != nil {
				return err
			}
			fmt.Printf("saved=%d\n", n)
			return nil
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all loaded databases",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			infos, err := registry.List()
			if err != nil {
				return err
			}
			for _, info := range infos {
				idle := time.Since(info.LastAccessed).Truncate(time.Second)
				fmt.Printf("%-24s size=%-6d idle=%s\n", info.Name, info.Size, idle)
			}
			return nil
		},
	}
)

func init() {
	setCmd.Flags().String("type", "string", util.WrapString("Type of the value: string, number, bool, vector (x,y,z) or json"))
}
