package radio

import "strings"

type localStation struct {
	Station
	keywords string
}

var localStations = []localStation{
	{Station{UUID: "local-jk-1", Name: "BIG FM 92.7 (Srinagar)", URL: "https://stream.zeno.fm/5u2c0yh0ekhvv", Country: "India", Band: FM, Frequency: 92.7}, "Kashmir, Srinagar, Local, Bollywood"},
	{Station{UUID: "local-jk-2", Name: "Radio Mirchi 98.3 (Srinagar)", URL: "http://stream2.oppocast.com/mi_stream", Country: "India", Band: FM, Frequency: 98.3}, "Kashmir, Srinagar, Local, Hits"},
	{Station{UUID: "local-jk-3", Name: "RED FM 93.5 (J&K)", URL: "https://stream.zeno.fm/0az0qx8e4p8uv", Country: "India", Band: FM, Frequency: 93.5}, "Kashmir, Jammu, Local, Bollywood"},
	{Station{UUID: "local-jk-4", Name: "AIR Srinagar (102.6 FM)", URL: "https://airhlspush.pc.cdn.bitgravity.com/httppush/hlspbaudio002/hlspbaudio002_Auto.m3u8", Country: "India", Band: FM, Frequency: 102.6}, "Kashmir, Srinagar, News, Local"},
	{Station{UUID: "local-jk-5", Name: "Radio Sharda 90.4 FM (Jammu)", URL: "https://stream.zeno.fm/qgqrxfte41zuv", Country: "India", Band: FM, Frequency: 90.4}, "Kashmir, Jammu, Local, Community"},
	{Station{UUID: "local-jk-6", Name: "AIR Jammu (103.5 FM)", URL: "https://air.pc.cdn.bitgravity.com/air/live/pbaudio021/chunklist.m3u8", Country: "India", Band: FM, Frequency: 103.5}, "Kashmir, Jammu, Local, News"},
	{Station{UUID: "local-jk-7", Name: "Akashvani Bhaderwah", URL: "https://airhlspush.pc.cdn.bitgravity.com/httppush/hlspbaudio002/hlspbaudio002_Auto.m3u8", Country: "India", Band: FM, Frequency: 101.0}, "Kashmir, Bhaderwah, Local"},
	{Station{UUID: "local-jk-8", Name: "AIR Leh & Kargil", URL: "https://air.pc.cdn.bitgravity.com/air/live/pbaudio021/chunklist.m3u8", Country: "India", Band: FM, Frequency: 100.3}, "Kashmir, Leh, Kargil, Local"},
}

// withLocalPack puts the matching local stations first and drops directory
// entries that sit on the same dial position.
func withLocalPack(stations []Station, search string) []Station {
	search = strings.ToLower(search)
	var pack []Station
	for _, l := range localStations {
		if search == "" || strings.Contains(strings.ToLower(l.keywords), search) || strings.Contains(strings.ToLower(l.Name), search) {
			st := l.Station
			st.Tags = l.keywords
			pack = append(pack, st)
		}
	}
	if len(pack) == 0 {
		return stations
	}
	out := append([]Station(nil), pack...)
	for _, st := range stations {
		taken := false
		for _, l := range pack {
			if l.Band == st.Band && l.Frequency == st.Frequency {
				taken = true
				break
			}
		}
		if !taken {
			out = append(out, st)
		}
	}
	return out
}
