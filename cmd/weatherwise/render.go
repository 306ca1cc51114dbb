package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kjstillabower/weatherwise/internal/airquality"
	"github.com/kjstillabower/weatherwise/internal/display"
	"github.com/kjstillabower/weatherwise/internal/session"
)

const (
	promptNoWeather = "Enter a city to get started"
	providerNote    = "via OpenWeather · may vary slightly from other sources"
)

// render writes the session view as plain text.
func render(w io.Writer, v session.View, now time.Time) {
	if v.Status == session.StatusError || v.Weather == nil {
		fmt.Fprintln(w, "📍 Where are you?")
		msg := v.Error
		if msg == "" {
			msg = promptNoWeather
		}
		fmt.Fprintln(w, msg)
		renderSaved(w, v)
		return
	}

	wx := v.Weather
	unit := v.Unit
	fmt.Fprintf(w, "%s, %s\n", wx.City, wx.Country)
	fmt.Fprintln(w, providerNote)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s  %s  %s\n", display.ConditionEmoji(wx.Condition, wx.Icon), display.FormatTemp(wx.Temperature, unit), wx.Description)
	fmt.Fprintf(w, "Feels like %s\n", display.FormatTemp(wx.FeelsLike, unit))
	if v.Recommendation != nil {
		fmt.Fprintf(w, "\n%s\n", v.Recommendation.DailySummary)
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Humidity\t%d%%\n", wx.Humidity)
	fmt.Fprintf(tw, "Feels Like\t%s\n", display.FormatTemp(wx.FeelsLike, unit))
	fmt.Fprintf(tw, "Wind\t%d km/h\n", wx.WindSpeed)
	fmt.Fprintf(tw, "Visibility\t%d km\n", wx.Visibility)
	tw.Flush()

	if len(v.Hourly) > 0 {
		fmt.Fprintln(w, "\nNext hours")
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, h := range v.Hourly {
			fmt.Fprintf(tw, "%s\t%s\t%s\t💧%d%%\n", h.Time, display.ConditionEmoji(h.Condition, h.Icon), display.FormatTemp(h.Temperature, unit), h.Pop)
		}
		tw.Flush()
	}

	if len(v.Forecast) > 0 {
		fmt.Fprintln(w, "\nForecast")
		today := now.Format("2006-01-02")
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, d := range v.Forecast {
			day := d.DayOfWeek
			if d.Date == today {
				day = "Today"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s / %s\t💧%d%%\n", day, d.DateStr, display.ConditionEmoji(d.Condition, d.Icon),
				display.FormatTemp(d.TempMax, unit), display.FormatTemp(d.TempMin, unit), d.Pop)
		}
		tw.Flush()
	}

	if aq := v.AirQuality; aq != nil {
		level := airquality.LevelFor(aq.AQI)
		fmt.Fprintf(w, "\nAir quality: %s (%d/5). %s\n", level.Label, level.Index, level.Description)
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, p := range airquality.Pollutants(*aq) {
			flag := ""
			if p.OverLimit() {
				flag = "⚠ over limit"
			}
			fmt.Fprintf(tw, "%s\t%.1f µg/m³\t(limit %g)\t%s\n", p.Label, p.Value, p.SafeLimit, flag)
		}
		tw.Flush()
	}

	if rec := v.Recommendation; rec != nil {
		o := rec.Outfit
		fmt.Fprintln(w, "\nWhat to wear")
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Top\t%s\n", o.Top)
		fmt.Fprintf(tw, "Bottom\t%s\n", o.Bottom)
		fmt.Fprintf(tw, "Outer\t%s\n", o.Outer)
		fmt.Fprintf(tw, "Shoes\t%s\n", o.Shoes)
		fmt.Fprintf(tw, "Accessory\t%s\n", o.Accessory)
		tw.Flush()
		fmt.Fprintln(w, o.Summary)

		fmt.Fprintln(w, "\nThings to do")
		for _, a := range rec.Activities {
			fmt.Fprintf(w, "%s %s (%s): %s\n", a.Emoji, a.Name, a.Type, a.Reason)
		}
	}

	renderSaved(w, v)
}

func renderSaved(w io.Writer, v session.View) {
	if len(v.SavedCities) == 0 {
		return
	}
	fmt.Fprintf(w, "\nSaved: %s\n", strings.Join(v.SavedCities, ", "))
}
